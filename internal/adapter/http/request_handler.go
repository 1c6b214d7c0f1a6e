package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	requestDomain "microcredit-backend/internal/domain/request"
	requestUC "microcredit-backend/internal/usecase/request"
)

type RequestHandler struct {
	uc  *requestUC.Usecase
	log *logrus.Logger
}

func NewRequestHandler(uc *requestUC.Usecase, log *logrus.Logger) *RequestHandler {
	return &RequestHandler{uc: uc, log: log}
}

type personalInfoReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

type creditDetailsReq struct {
	RequestedAmount float64 `json:"requested_amount" validate:"gte=0,dec2"`
	DurationMonths  int     `json:"duration_months" validate:"gte=0"`
	Purpose         string  `json:"purpose"`
}

type financialDetailsReq struct {
	MonthlyIncome      float64 `json:"monthly_income" validate:"gte=0"`
	OtherIncome        float64 `json:"other_income" validate:"gte=0"`
	MonthlyCharges     float64 `json:"monthly_charges" validate:"gte=0"`
	ExistingDebts      float64 `json:"existing_debts" validate:"gte=0"`
	EmploymentStatus   string  `json:"employment_status"`
	JobSeniorityMonths int     `json:"job_seniority_months" validate:"gte=0"`
}

type createRequestReq struct {
	UserID           string              `json:"user_id" validate:"required,hex32"`
	PersonalInfo     personalInfoReq     `json:"personal_info"`
	CreditDetails    creditDetailsReq    `json:"credit_details"`
	FinancialDetails financialDetailsReq `json:"financial_details"`
}

func (r createRequestReq) toInput() requestUC.CreateInput {
	return requestUC.CreateInput{
		UserID:           r.UserID,
		PersonalInfo:     requestDomain.PersonalInfo(r.PersonalInfo),
		CreditDetails:    requestDomain.CreditDetails(r.CreditDetails),
		FinancialDetails: requestDomain.FinancialDetails(r.FinancialDetails),
	}
}

func (h *RequestHandler) Create(c echo.Context) error {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	out, err := h.uc.Create(c.Request().Context(), req.toInput(), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RequestHandler) Get(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) ListByUser(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	f := requestDomain.ListFilter{
		Status: requestDomain.Status(c.QueryParam("status")),
		Limit:  limit,
		Offset: offset,
	}
	out, err := h.uc.List(c.Request().Context(), c.Param("user_id"), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type updateRequestReq struct {
	PersonalInfo     *personalInfoReq     `json:"personal_info"`
	CreditDetails    *creditDetailsReq    `json:"credit_details"`
	FinancialDetails *financialDetailsReq `json:"financial_details"`
}

func (h *RequestHandler) Update(c echo.Context) error {
	var req updateRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	in := requestUC.UpdateInput{}
	if req.PersonalInfo != nil {
		v := requestDomain.PersonalInfo(*req.PersonalInfo)
		in.PersonalInfo = &v
	}
	if req.CreditDetails != nil {
		v := requestDomain.CreditDetails(*req.CreditDetails)
		in.CreditDetails = &v
	}
	if req.FinancialDetails != nil {
		v := requestDomain.FinancialDetails(*req.FinancialDetails)
		in.FinancialDetails = &v
	}
	out, err := h.uc.Update(c.Request().Context(), c.Param("request_id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), c.Param("request_id"), actorFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RequestHandler) SaveDraft(c echo.Context) error {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	req.UserID = c.Param("user_id")
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	out, err := h.uc.SaveDraft(c.Request().Context(), req.toInput(), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) GetDraft(c echo.Context) error {
	out, err := h.uc.GetDraft(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if out == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) DeleteDraft(c echo.Context) error {
	if err := h.uc.DeleteDraft(c.Request().Context(), c.Param("user_id"), actorFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RequestHandler) Submit(c echo.Context) error {
	out, err := h.uc.Submit(c.Request().Context(), c.Param("request_id"), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Claim(c echo.Context) error {
	out, err := h.uc.Claim(c.Request().Context(), c.Param("request_id"), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type requireInfoReq struct {
	Comment string `json:"comment" validate:"required"`
}

func (h *RequestHandler) RequireInfo(c echo.Context) error {
	var req requireInfoReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	out, err := h.uc.RequireInfo(c.Request().Context(), c.Param("request_id"), req.Comment, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type decideReq struct {
	Approve                bool     `json:"approve"`
	Notes                  string   `json:"notes"`
	ApprovedAmount         *float64 `json:"approved_amount" validate:"omitempty,gt=0,dec2"`
	ApprovedRate           *float64 `json:"approved_rate" validate:"omitempty,gte=0,lte=1"`
	ApprovedDurationMonths *int     `json:"approved_duration_months" validate:"omitempty,gt=0"`
}

func (h *RequestHandler) Decide(c echo.Context) error {
	var req decideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	out, err := h.uc.Decide(c.Request().Context(), c.Param("request_id"), requestUC.DecideInput(req), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Disburse(c echo.Context) error {
	req, cr, err := h.uc.Disburse(c.Request().Context(), c.Param("request_id"), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"request": req,
		"credit":  cr,
	})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *RequestHandler) Cancel(c echo.Context) error {
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	out, err := h.uc.Cancel(c.Request().Context(), c.Param("request_id"), req.Reason, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type commentReq struct {
	Comment string `json:"comment" validate:"required"`
}

func (h *RequestHandler) AddComment(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := h.uc.AddComment(c.Request().Context(), c.Param("request_id"), req.Comment, actorFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusCreated)
}

// UploadDocument accepts multipart form data: "type" field + "file" part.
func (h *RequestHandler) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file part is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.log, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return writeError(c, h.log, err)
	}

	mimeType := fh.Header.Get("Content-Type")
	in := requestUC.UploadInput{
		Type:     requestDomain.DocumentType(c.FormValue("type")),
		Filename: fh.Filename,
		MimeType: mimeType,
		Data:     data,
	}
	out, err := h.uc.UploadDocument(c.Request().Context(), c.Param("request_id"), in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RequestHandler) ListDocuments(c echo.Context) error {
	out, err := h.uc.Documents(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) DeleteDocument(c echo.Context) error {
	err := h.uc.DeleteDocument(c.Request().Context(), c.Param("request_id"), c.Param("document_id"), actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RequestHandler) History(c echo.Context) error {
	out, err := h.uc.HistoryOf(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Stats(c echo.Context) error {
	out, err := h.uc.Stats(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
