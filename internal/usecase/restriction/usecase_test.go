package restriction

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/internal/domain/profile"
	domain "microcredit-backend/internal/domain/restriction"
)

func testProfile(income, charges float64) *profile.FinancialProfile {
	return &profile.FinancialProfile{
		UserID:         "a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8",
		MonthlyIncome:  income,
		MonthlyCharges: charges,
	}
}

func TestComputeAllClear(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	res := Compute(testProfile(1000000, 200000), 0, 0, nil, now, DefaultLimits())

	if !res.CanApply {
		t.Fatalf("expected CanApply, got blocked: %s", res.BlockingReason)
	}
	if len(res.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %d", len(res.Reasons))
	}
	if res.DebtRatio != 0.2 {
		t.Fatalf("debt ratio = %v, want 0.2", res.DebtRatio)
	}
}

func TestComputeMaxActiveCredits(t *testing.T) {
	now := time.Now().UTC()
	res := Compute(testProfile(1000000, 100000), 2, 100000, nil, now, DefaultLimits())

	if res.CanApply {
		t.Fatalf("expected block at two active credits")
	}
	if res.Reasons[0].Code != domain.CodeMaxActiveCredits {
		t.Fatalf("primary reason = %s, want %s", res.Reasons[0].Code, domain.CodeMaxActiveCredits)
	}
	if res.Reasons[0].Threshold != 2 || res.Reasons[0].Actual != 2 {
		t.Fatalf("threshold/actual = %v/%v", res.Reasons[0].Threshold, res.Reasons[0].Actual)
	}
}

func TestComputeDebtRatio(t *testing.T) {
	// 200000 charges + 600000 remaining debt over 1000000 income is 80%.
	now := time.Now().UTC()
	res := Compute(testProfile(1000000, 200000), 1, 600000, nil, now, DefaultLimits())

	if res.CanApply {
		t.Fatalf("expected block above the ratio cap")
	}
	if res.Reasons[0].Code != domain.CodeDebtRatioExceeded {
		t.Fatalf("primary reason = %s", res.Reasons[0].Code)
	}
	if res.Reasons[0].Message != "debt ratio too high (80.0%)" {
		t.Fatalf("message = %q", res.Reasons[0].Message)
	}
	if res.DebtRatio != 0.8 {
		t.Fatalf("debt ratio = %v", res.DebtRatio)
	}
}

func TestComputeRatioAtBoundaryPasses(t *testing.T) {
	// Exactly 70% is allowed; only strictly above blocks.
	now := time.Now().UTC()
	res := Compute(testProfile(1000000, 200000), 1, 500000, nil, now, DefaultLimits())
	if !res.CanApply {
		t.Fatalf("expected 0.70 exactly to pass, got %s", res.BlockingReason)
	}
}

func TestComputeCooldown(t *testing.T) {
	now := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	applied := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	prev := &domain.DebtRestriction{LastApplicationDate: &applied}

	res := Compute(testProfile(1000000, 100000), 0, 0, prev, now, DefaultLimits())

	if res.CanApply {
		t.Fatalf("expected cooldown block")
	}
	if res.Reasons[0].Code != domain.CodeCooldownActive {
		t.Fatalf("primary reason = %s", res.Reasons[0].Code)
	}
	if res.CooldownDaysLeft != 20 {
		t.Fatalf("days left = %d, want 20", res.CooldownDaysLeft)
	}
	wantEligible := applied.AddDate(0, 0, 30)
	if res.NextEligibleDate == nil || !res.NextEligibleDate.Equal(wantEligible) {
		t.Fatalf("next eligible = %v, want %v", res.NextEligibleDate, wantEligible)
	}
}

func TestComputeCooldownExpired(t *testing.T) {
	now := time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC)
	applied := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	prev := &domain.DebtRestriction{LastApplicationDate: &applied}

	res := Compute(testProfile(1000000, 100000), 0, 0, prev, now, DefaultLimits())

	if !res.CanApply {
		t.Fatalf("expected cooldown to have expired, got %s", res.BlockingReason)
	}
	if res.NextEligibleDate != nil {
		t.Fatalf("next eligible should be nil once the cooldown lapsed")
	}
	// The application date carries over from the previous snapshot.
	if res.LastApplicationDate == nil || !res.LastApplicationDate.Equal(applied) {
		t.Fatalf("last application date lost")
	}
}

func TestComputePrecedence(t *testing.T) {
	// All three rules fire; the count cap wins as the primary reason and the
	// others are still reported.
	now := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	applied := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	prev := &domain.DebtRestriction{LastApplicationDate: &applied}

	res := Compute(testProfile(1000000, 300000), 3, 900000, prev, now, DefaultLimits())

	if len(res.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %d", len(res.Reasons))
	}
	want := []string{domain.CodeMaxActiveCredits, domain.CodeDebtRatioExceeded, domain.CodeCooldownActive}
	for i, code := range want {
		if res.Reasons[i].Code != code {
			t.Fatalf("reason[%d] = %s, want %s", i, res.Reasons[i].Code, code)
		}
	}
	if res.BlockingReason != res.Reasons[0].Message {
		t.Fatalf("blocking reason should be the first reason's message")
	}
}

func TestComputeZeroIncome(t *testing.T) {
	// A zero income must not divide by zero.
	now := time.Now().UTC()
	res := Compute(testProfile(0, 50000), 0, 0, nil, now, DefaultLimits())
	if res.CanApply {
		t.Fatalf("charges with no income should block on the ratio")
	}
}

func TestBlocking(t *testing.T) {
	now := time.Now().UTC()

	ok := Compute(testProfile(1000000, 100000), 0, 0, nil, now, DefaultLimits())
	if err := Blocking(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blocked := Compute(testProfile(1000000, 100000), 2, 0, nil, now, DefaultLimits())
	err := Blocking(blocked)
	var re *errs.RestrictionError
	if !errors.As(err, &re) {
		t.Fatalf("expected *errs.RestrictionError, got %T", err)
	}
	if re.Code != domain.CodeMaxActiveCredits {
		t.Fatalf("code = %s", re.Code)
	}
	if re.Threshold != 2 || re.Actual != 2 {
		t.Fatalf("threshold/actual = %v/%v", re.Threshold, re.Actual)
	}
}

// -------- Evaluate error propagation --------

type profileStub struct {
	GetFn func(ctx context.Context, userID string) (*profile.FinancialProfile, error)
}

func (s *profileStub) Create(ctx context.Context, p *profile.FinancialProfile) error { return nil }
func (s *profileStub) GetByUserID(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
	return s.GetFn(ctx, userID)
}
func (s *profileStub) GetByUserIDForUpdate(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
	return s.GetFn(ctx, userID)
}
func (s *profileStub) Save(ctx context.Context, p *profile.FinancialProfile) error { return nil }
func (s *profileStub) UpdateDebts(ctx context.Context, userID string, totalDebt float64) error {
	return nil
}

type creditStub struct {
	CountFn func(ctx context.Context, userID string) (int64, error)
	SumFn   func(ctx context.Context, userID string) (float64, error)
}

func (s *creditStub) Create(ctx context.Context, c *credit.DisbursedCredit) error { return nil }
func (s *creditStub) GetByCreditID(ctx context.Context, creditID string) (*credit.DisbursedCredit, error) {
	return nil, errs.ErrNotFound
}
func (s *creditStub) GetByCreditIDForUpdate(ctx context.Context, creditID string) (*credit.DisbursedCredit, error) {
	return nil, errs.ErrNotFound
}
func (s *creditStub) Save(ctx context.Context, c *credit.DisbursedCredit) error { return nil }
func (s *creditStub) ListByUser(ctx context.Context, userID string) ([]credit.DisbursedCredit, error) {
	return nil, nil
}
func (s *creditStub) ListActiveByUser(ctx context.Context, userID string) ([]credit.DisbursedCredit, error) {
	return nil, nil
}
func (s *creditStub) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	return s.CountFn(ctx, userID)
}
func (s *creditStub) SumActiveRemainingByUser(ctx context.Context, userID string) (float64, error) {
	return s.SumFn(ctx, userID)
}
func (s *creditStub) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]credit.DisbursedCredit, error) {
	return nil, nil
}

type restrictionStub struct {
	GetFn func(ctx context.Context, userID string) (*domain.DebtRestriction, error)
}

func (s *restrictionStub) Upsert(ctx context.Context, r *domain.DebtRestriction) error { return nil }
func (s *restrictionStub) GetByUserID(ctx context.Context, userID string) (*domain.DebtRestriction, error) {
	return s.GetFn(ctx, userID)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	return log
}

func TestEvaluateUnknownUser(t *testing.T) {
	uc := NewUsecase(&profileStub{
		GetFn: func(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
			return nil, errs.ErrNotFound
		},
	}, &creditStub{}, &restrictionStub{}, DefaultLimits(), quietLogger())

	_, err := uc.Evaluate(context.Background(), "nope")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEvaluateProfileReadFailure(t *testing.T) {
	uc := NewUsecase(&profileStub{
		GetFn: func(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
			return nil, errors.New("connection refused")
		},
	}, &creditStub{}, &restrictionStub{}, DefaultLimits(), quietLogger())

	_, err := uc.Evaluate(context.Background(), "user")
	var de *errs.DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T %v, want DependencyError", err, err)
	}
	if errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("read failure must not surface as not-found: %v", err)
	}
}

func TestEvaluateSnapshotReadFailure(t *testing.T) {
	uc := NewUsecase(&profileStub{
		GetFn: func(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
			return testProfile(1000000, 100000), nil
		},
	}, &creditStub{
		CountFn: func(ctx context.Context, userID string) (int64, error) { return 0, nil },
		SumFn:   func(ctx context.Context, userID string) (float64, error) { return 0, nil },
	}, &restrictionStub{
		GetFn: func(ctx context.Context, userID string) (*domain.DebtRestriction, error) {
			return nil, errors.New("driver: bad connection")
		},
	}, DefaultLimits(), quietLogger())

	_, err := uc.Evaluate(context.Background(), "user")
	var de *errs.DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T %v, want DependencyError", err, err)
	}
}

func TestEvaluateNoPreviousSnapshot(t *testing.T) {
	uc := NewUsecase(&profileStub{
		GetFn: func(ctx context.Context, userID string) (*profile.FinancialProfile, error) {
			return testProfile(1000000, 100000), nil
		},
	}, &creditStub{
		CountFn: func(ctx context.Context, userID string) (int64, error) { return 0, nil },
		SumFn:   func(ctx context.Context, userID string) (float64, error) { return 0, nil },
	}, &restrictionStub{
		GetFn: func(ctx context.Context, userID string) (*domain.DebtRestriction, error) {
			return nil, errs.ErrNotFound
		},
	}, DefaultLimits(), quietLogger())

	res, err := uc.Evaluate(context.Background(), "user")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.CanApply {
		t.Fatalf("first-time user should be clear, got blocked: %s", res.BlockingReason)
	}
}
