package restriction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/internal/domain/profile"
	domain "microcredit-backend/internal/domain/restriction"
	"microcredit-backend/internal/domain/uow"
)

// Limits are the portfolio-level caps enforced before any new credit.
type Limits struct {
	MaxActiveCredits int
	MaxDebtRatio     float64
	CooldownDays     int
}

func DefaultLimits() Limits {
	return Limits{MaxActiveCredits: 2, MaxDebtRatio: 0.70, CooldownDays: 30}
}

type Usecase struct {
	profiles     profile.Repository
	credits      credit.Repository
	restrictions domain.Repository
	limits       Limits
	log          *logrus.Logger
	now          func() time.Time
}

func NewUsecase(profiles profile.Repository, credits credit.Repository, restrictions domain.Repository, limits Limits, log *logrus.Logger) *Usecase {
	return &Usecase{profiles: profiles, credits: credits, restrictions: restrictions, limits: limits, log: log, now: time.Now}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Evaluate computes the user's restriction snapshot from the current ledger.
// It is read-only and idempotent; race safety for the create step comes from
// the unit of work's per-user lock, not from this function.
func (u *Usecase) Evaluate(ctx context.Context, userID string) (*domain.DebtRestriction, error) {
	p, err := u.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Dependency("restriction.load_profile", err)
	}

	count, err := u.credits.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, errs.Dependency("restriction.count_active", err)
	}
	totalDebt, err := u.credits.SumActiveRemainingByUser(ctx, userID)
	if err != nil {
		return nil, errs.Dependency("restriction.sum_active", err)
	}

	// No previous snapshot is normal for a first-time user; any other
	// read failure must surface.
	prev, err := u.restrictions.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Dependency("restriction.load_previous", err)
	}
	return Compute(p, int(count), totalDebt, prev, u.now().UTC(), u.limits), nil
}

// Refresh recomputes the snapshot and upserts it. markApplication stamps the
// cooldown clock; registration paths set it, payment paths do not.
func (u *Usecase) Refresh(ctx context.Context, userID string, markApplication bool) (*domain.DebtRestriction, error) {
	res, err := u.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if markApplication {
		now := u.now().UTC()
		res.LastApplicationDate = &now
	}
	if err := u.restrictions.Upsert(ctx, res); err != nil {
		return nil, errs.Dependency("restriction.upsert", err)
	}
	return res, nil
}

// RefreshIn is the transactional variant, used by the ledger writer with
// tx-bound repositories.
func RefreshIn(ctx context.Context, r uow.Repos, p *profile.FinancialProfile, limits Limits, now time.Time, markApplication bool) (*domain.DebtRestriction, error) {
	count, err := r.Credits.CountActiveByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	totalDebt, err := r.Credits.SumActiveRemainingByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	prev, err := r.Restrictions.GetByUserID(ctx, p.UserID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	res := Compute(p, int(count), totalDebt, prev, now, limits)
	if markApplication {
		res.LastApplicationDate = &now
	}
	if err := r.Restrictions.Upsert(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Compute is the pure rule set. Rules run in precedence order; the first
// blocking rule becomes the primary reason, later ones are still reported.
func Compute(p *profile.FinancialProfile, activeCount int, totalDebt float64, prev *domain.DebtRestriction, now time.Time, limits Limits) *domain.DebtRestriction {
	income := math.Max(p.MonthlyIncome, 1)
	debtRatio := (p.MonthlyCharges + totalDebt) / income

	res := &domain.DebtRestriction{
		UserID:            p.UserID,
		MaxActiveCredits:  limits.MaxActiveCredits,
		ActiveCreditCount: activeCount,
		TotalActiveDebt:   totalDebt,
		DebtRatio:         debtRatio,
	}
	if prev != nil {
		res.LastApplicationDate = prev.LastApplicationDate
	}

	var reasons domain.ReasonList

	if activeCount >= limits.MaxActiveCredits {
		reasons = append(reasons, domain.Reason{
			Code:      domain.CodeMaxActiveCredits,
			Message:   fmt.Sprintf("maximum of %d active credits reached", limits.MaxActiveCredits),
			Threshold: float64(limits.MaxActiveCredits),
			Actual:    float64(activeCount),
		})
	}

	if debtRatio > limits.MaxDebtRatio {
		reasons = append(reasons, domain.Reason{
			Code:      domain.CodeDebtRatioExceeded,
			Message:   fmt.Sprintf("debt ratio too high (%.1f%%)", debtRatio*100),
			Threshold: limits.MaxDebtRatio,
			Actual:    debtRatio,
		})
	}

	if res.LastApplicationDate != nil {
		eligible := res.LastApplicationDate.AddDate(0, 0, limits.CooldownDays)
		if now.Before(eligible) {
			daysLeft := int(math.Ceil(eligible.Sub(now).Hours() / 24))
			res.NextEligibleDate = &eligible
			res.CooldownDaysLeft = daysLeft
			reasons = append(reasons, domain.Reason{
				Code:      domain.CodeCooldownActive,
				Message:   fmt.Sprintf("cooldown active, %d day(s) until %s", daysLeft, eligible.Format("2006-01-02")),
				Threshold: float64(limits.CooldownDays),
				Actual:    float64(limits.CooldownDays - daysLeft),
			})
		}
	}

	res.Reasons = reasons
	res.CanApply = len(reasons) == 0
	if !res.CanApply {
		res.BlockingReason = reasons[0].Message
	}
	return res
}

// Blocking converts a snapshot's primary reason into the domain error the
// create paths return.
func Blocking(res *domain.DebtRestriction) error {
	if res.CanApply {
		return nil
	}
	primary := res.Reasons[0]
	return &errs.RestrictionError{
		Code:      primary.Code,
		Message:   primary.Message,
		Threshold: primary.Threshold,
		Actual:    primary.Actual,
	}
}
