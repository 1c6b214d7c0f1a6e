package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/errs"
	requestUC "microcredit-backend/internal/usecase/request"
)

// ---- helpers ----

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// actorFrom reads the caller identity forwarded by the gateway. Handlers
// never invent an actor.
func actorFrom(c echo.Context) requestUC.Actor {
	return requestUC.Actor{
		ID:   c.Request().Header.Get("X-Actor-Id"),
		Name: c.Request().Header.Get("X-Actor-Name"),
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses:
// 422 validation, 409 restriction or state conflict, 404 not found,
// 500 opaque (cause stays in logs only).
func writeError(c echo.Context, log *logrus.Logger, err error) error {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		details := make([]FieldError, 0, len(ve.Violations))
		for _, v := range ve.Violations {
			details = append(details, FieldError{Field: v.Field, Message: v.Message})
		}
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: details})
	}

	var re *errs.RestrictionError
	if errors.As(err, &re) {
		return c.JSON(http.StatusConflict, map[string]any{
			"error":     re.Message,
			"code":      re.Code,
			"threshold": re.Threshold,
			"actual":    re.Actual,
		})
	}

	var sc *errs.StateConflictError
	if errors.As(err, &sc) {
		return c.JSON(http.StatusConflict, map[string]string{"error": sc.Error()})
	}

	if errors.Is(err, errs.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	log.WithError(err).Error("request failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
