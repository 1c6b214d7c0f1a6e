package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/errs"
	profileDomain "microcredit-backend/internal/domain/profile"
	scoringUC "microcredit-backend/internal/usecase/scoring"
)

type ProfileHandler struct {
	profiles profileDomain.Repository
	scoring  *scoringUC.Service
	log      *logrus.Logger
}

func NewProfileHandler(profiles profileDomain.Repository, scoring *scoringUC.Service, log *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, scoring: scoring, log: log}
}

type upsertProfileReq struct {
	MonthlyIncome     float64 `json:"monthly_income" validate:"gte=0"`
	OtherIncome       float64 `json:"other_income" validate:"gte=0"`
	MonthlyCharges    float64 `json:"monthly_charges" validate:"gte=0"`
	ExistingDebts     float64 `json:"existing_debts" validate:"gte=0"`
	EmploymentStatus  string  `json:"employment_status" validate:"omitempty,oneof=permanent fixed_term independent civil_servant other"`
	JobSeniorityMonths int    `json:"job_seniority_months" validate:"gte=0"`
	BirthDate         string  `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpsertProfile creates or replaces the financial profile, then recomputes
// the score so reads stay consistent with the new figures.
func (h *ProfileHandler) UpsertProfile(c echo.Context) error {
	userID := c.Param("user_id")

	var req upsertProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	ctx := c.Request().Context()

	var birth *time.Time
	if req.BirthDate != "" {
		d, _ := time.Parse("2006-01-02", req.BirthDate)
		birth = &d
	}

	p, err := h.profiles.GetByUserID(ctx, userID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		p = &profileDomain.FinancialProfile{UserID: userID}
		created = true
	default:
		return writeError(c, h.log, err)
	}

	p.MonthlyIncome = req.MonthlyIncome
	p.OtherIncome = req.OtherIncome
	p.MonthlyCharges = req.MonthlyCharges
	p.ExistingDebts = req.ExistingDebts
	p.EmploymentStatus = profileDomain.EmploymentStatus(req.EmploymentStatus)
	p.JobSeniorityMonths = req.JobSeniorityMonths
	p.BirthDate = birth

	if created {
		err = h.profiles.Create(ctx, p)
	} else {
		err = h.profiles.Save(ctx, p)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}

	outcome, serr := h.scoring.ScoreProfile(ctx, p, nil)
	if serr != nil {
		h.log.WithError(serr).WithField("user_id", userID).Warn("rescore after profile update failed")
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]any{
		"profile": p,
		"score":   outcome.Result,
	})
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	p, err := h.profiles.GetByUserID(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
