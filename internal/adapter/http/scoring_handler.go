package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/errs"
	restrictionUC "microcredit-backend/internal/usecase/restriction"
	scoringUC "microcredit-backend/internal/usecase/scoring"
)

type ScoringHandler struct {
	scoring      *scoringUC.Service
	restrictions *restrictionUC.Usecase
	log          *logrus.Logger
}

func NewScoringHandler(scoring *scoringUC.Service, restrictions *restrictionUC.Usecase, log *logrus.Logger) *ScoringHandler {
	return &ScoringHandler{scoring: scoring, restrictions: restrictions, log: log}
}

// Recalculate recomputes and persists the user's score. Degraded results
// come back 200 with the degraded flag set; the engine never refuses.
func (h *ScoringHandler) Recalculate(c echo.Context) error {
	outcome, err := h.scoring.ScoreUser(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"score":    outcome.Result,
		"degraded": outcome.Degraded,
	})
}

func (h *ScoringHandler) LatestScore(c echo.Context) error {
	res, err := h.scoring.Latest(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if res == nil {
		return writeError(c, h.log, errs.ErrNotFound)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ScoringHandler) ScoreHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.scoring.History(c.Request().Context(), c.Param("user_id"), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Restrictions returns the live eligibility snapshot without persisting it.
func (h *ScoringHandler) Restrictions(c echo.Context) error {
	res, err := h.restrictions.Evaluate(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
