package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/errs"
	profileDomain "microcredit-backend/internal/domain/profile"
	scoringDomain "microcredit-backend/internal/domain/scoring"
	scoringUC "microcredit-backend/internal/usecase/scoring"
)

// -------- mocks --------

type profileRepoMock struct {
	CreateFn   func(ctx context.Context, p *profileDomain.FinancialProfile) error
	GetFn      func(ctx context.Context, userID string) (*profileDomain.FinancialProfile, error)
	SaveFn     func(ctx context.Context, p *profileDomain.FinancialProfile) error
	UpdDebtsFn func(ctx context.Context, userID string, totalDebt float64) error
}

func (m *profileRepoMock) Create(ctx context.Context, p *profileDomain.FinancialProfile) error {
	return m.CreateFn(ctx, p)
}
func (m *profileRepoMock) GetByUserID(ctx context.Context, userID string) (*profileDomain.FinancialProfile, error) {
	return m.GetFn(ctx, userID)
}
func (m *profileRepoMock) GetByUserIDForUpdate(ctx context.Context, userID string) (*profileDomain.FinancialProfile, error) {
	return m.GetFn(ctx, userID)
}
func (m *profileRepoMock) Save(ctx context.Context, p *profileDomain.FinancialProfile) error {
	return m.SaveFn(ctx, p)
}
func (m *profileRepoMock) UpdateDebts(ctx context.Context, userID string, totalDebt float64) error {
	return m.UpdDebtsFn(ctx, userID, totalDebt)
}

type scoreRepoMock struct {
	CreateFn func(ctx context.Context, r *scoringDomain.Result) error
	LatestFn func(ctx context.Context, userID string) (*scoringDomain.Result, error)
	ListFn   func(ctx context.Context, userID string, limit int) ([]scoringDomain.Result, error)
}

func (m *scoreRepoMock) Create(ctx context.Context, r *scoringDomain.Result) error {
	return m.CreateFn(ctx, r)
}
func (m *scoreRepoMock) LatestByUser(ctx context.Context, userID string) (*scoringDomain.Result, error) {
	return m.LatestFn(ctx, userID)
}
func (m *scoreRepoMock) ListByUser(ctx context.Context, userID string, limit int) ([]scoringDomain.Result, error) {
	return m.ListFn(ctx, userID, limit)
}

// -------- helpers --------

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	return log
}

func newProfileHandler(profiles *profileRepoMock, scores *scoreRepoMock) *ProfileHandler {
	scoring := scoringUC.NewService(profiles, scores, nil, quietLog())
	return NewProfileHandler(profiles, scoring, quietLog())
}

// -------- tests --------

func TestUpsertProfile_CreatesAndScores(t *testing.T) {
	e := newEchoWithValidator()
	userID := strings.Repeat("a", 32)

	var created *profileDomain.FinancialProfile
	var stored *scoringDomain.Result
	profiles := &profileRepoMock{
		GetFn: func(ctx context.Context, id string) (*profileDomain.FinancialProfile, error) {
			return nil, errs.ErrNotFound
		},
		CreateFn: func(ctx context.Context, p *profileDomain.FinancialProfile) error {
			created = p
			return nil
		},
	}
	scores := &scoreRepoMock{
		CreateFn: func(ctx context.Context, r *scoringDomain.Result) error {
			stored = r
			return nil
		},
	}
	h := newProfileHandler(profiles, scores)

	body := map[string]any{
		"monthly_income":       600000,
		"monthly_charges":      100000,
		"existing_debts":       0,
		"employment_status":    "permanent",
		"job_seniority_months": 24,
	}
	req := httptest.NewRequest(stdhttp.MethodPut, "/users/"+userID+"/profile", mustJSON(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(userID)

	if err := h.UpsertProfile(c); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	if created == nil || created.UserID != userID || created.MonthlyIncome != 600000 {
		t.Fatalf("unexpected created profile: %+v", created)
	}
	if stored == nil || stored.UserID != userID {
		t.Fatalf("score was not persisted for the new profile: %+v", stored)
	}
	var got struct {
		Score *scoringDomain.Result `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Score == nil || got.Score.Score < 1 || got.Score.Score > 10 {
		t.Fatalf("response score out of range: %+v", got.Score)
	}
}

func TestUpsertProfile_UpdatesExisting(t *testing.T) {
	e := newEchoWithValidator()
	userID := strings.Repeat("b", 32)

	existing := &profileDomain.FinancialProfile{UserID: userID, MonthlyIncome: 200000}
	var saved *profileDomain.FinancialProfile
	profiles := &profileRepoMock{
		GetFn: func(ctx context.Context, id string) (*profileDomain.FinancialProfile, error) {
			return existing, nil
		},
		SaveFn: func(ctx context.Context, p *profileDomain.FinancialProfile) error {
			saved = p
			return nil
		},
	}
	scores := &scoreRepoMock{
		CreateFn: func(ctx context.Context, r *scoringDomain.Result) error { return nil },
	}
	h := newProfileHandler(profiles, scores)

	body := map[string]any{"monthly_income": 450000, "monthly_charges": 90000}
	req := httptest.NewRequest(stdhttp.MethodPut, "/users/"+userID+"/profile", mustJSON(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(userID)

	if err := h.UpsertProfile(c); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if saved == nil || saved.MonthlyIncome != 450000 || saved.MonthlyCharges != 90000 {
		t.Fatalf("unexpected saved profile: %+v", saved)
	}
}

func TestUpsertProfile_RejectsNegativeIncome(t *testing.T) {
	e := newEchoWithValidator()
	h := newProfileHandler(&profileRepoMock{}, &scoreRepoMock{})

	body := map[string]any{"monthly_income": -1}
	req := httptest.NewRequest(stdhttp.MethodPut, "/users/x/profile", mustJSON(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(strings.Repeat("c", 32))

	if err := h.UpsertProfile(c); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body=%s)", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !containsFieldMsg(resp.Details, "MonthlyIncome", "greater than or equal to 0") {
		t.Fatalf("expected a MonthlyIncome violation, got %+v", resp.Details)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	e := newEchoWithValidator()
	profiles := &profileRepoMock{
		GetFn: func(ctx context.Context, id string) (*profileDomain.FinancialProfile, error) {
			return nil, errs.ErrNotFound
		},
	}
	h := newProfileHandler(profiles, &scoreRepoMock{})

	req := httptest.NewRequest(stdhttp.MethodGet, "/users/x/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(strings.Repeat("d", 32))

	if err := h.GetProfile(c); err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
