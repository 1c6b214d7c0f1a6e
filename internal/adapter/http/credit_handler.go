package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	creditDomain "microcredit-backend/internal/domain/credit"
	ledgerUC "microcredit-backend/internal/usecase/ledger"
	shortcreditUC "microcredit-backend/internal/usecase/shortcredit"
)

type CreditHandler struct {
	credits  creditDomain.Repository
	payments creditDomain.PaymentRepository
	ledger   *ledgerUC.Usecase
	issuer   *shortcreditUC.Usecase
	log      *logrus.Logger
}

func NewCreditHandler(
	credits creditDomain.Repository,
	payments creditDomain.PaymentRepository,
	ledger *ledgerUC.Usecase,
	issuer *shortcreditUC.Usecase,
	log *logrus.Logger,
) *CreditHandler {
	return &CreditHandler{credits: credits, payments: payments, ledger: ledger, issuer: issuer, log: log}
}

type issueCreditReq struct {
	UserID string  `json:"user_id" validate:"required,hex32"`
	Type   string  `json:"type" validate:"required,oneof=salary_advance emergency consumption"`
	Amount float64 `json:"amount" validate:"gt=0,dec2"`
}

// Issue registers a short-term credit in one step, no review stage.
func (h *CreditHandler) Issue(c echo.Context) error {
	var req issueCreditReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	out, err := h.issuer.Issue(c.Request().Context(), shortcreditUC.IssueInput{
		UserID: req.UserID,
		Type:   creditDomain.Type(req.Type),
		Amount: req.Amount,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CreditHandler) Get(c echo.Context) error {
	out, err := h.credits.GetByCreditID(c.Request().Context(), c.Param("credit_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CreditHandler) ListByUser(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")
	var (
		out []creditDomain.DisbursedCredit
		err error
	)
	if c.QueryParam("active") == "true" {
		out, err = h.credits.ListActiveByUser(ctx, userID)
	} else {
		out, err = h.credits.ListByUser(ctx, userID)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	last, err := h.payments.LastPaymentAt(ctx, userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"credits":         out,
		"last_payment_at": last,
	})
}

type paymentReq struct {
	Amount float64 `json:"amount" validate:"gt=0,dec2"`
}

func (h *CreditHandler) Pay(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	cr, rec, err := h.ledger.ApplyPayment(c.Request().Context(), c.Param("credit_id"), req.Amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"credit":  cr,
		"payment": rec,
	})
}

func (h *CreditHandler) Payments(c echo.Context) error {
	cr, err := h.credits.GetByCreditID(c.Request().Context(), c.Param("credit_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.payments.ListByCredit(c.Request().Context(), cr.ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
