package ledger

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/audit"
	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/internal/domain/profile"
	"microcredit-backend/internal/domain/uow"
	"microcredit-backend/internal/usecase/restriction"
	"microcredit-backend/internal/usecase/scoring"
	"microcredit-backend/pkg/id"
)

// centAmount rounds to 2 decimal places; ledger arithmetic never carries
// sub-cent residue.
func centAmount(v float64) float64 { return math.Round(v*100) / 100 }

// Rescorer recomputes a user's score after a ledger mutation. Satisfied by
// the scoring service.
type Rescorer interface {
	ScoreUser(ctx context.Context, userID string) (scoring.Outcome, error)
}

type scoreFunc func(ctx context.Context, userID string) error

// Usecase is the credit ledger writer and payment processor. Registration
// and payment each run as one transaction (insert/update + debt aggregate +
// restriction refresh); the score recompute follows the commit, in order.
type Usecase struct {
	uow     uow.UnitOfWork
	limits  restriction.Limits
	rescore scoreFunc
	sink    audit.Sink
	log     *logrus.Logger
	now     func() time.Time
}

func NewUsecase(u uow.UnitOfWork, limits restriction.Limits, sink audit.Sink, log *logrus.Logger) *Usecase {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Usecase{uow: u, limits: limits, sink: sink, log: log, now: time.Now}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// WithRescorer wires the post-mutation score recompute. Kept as a setter so
// the scoring service and the ledger can be constructed independently.
func (u *Usecase) WithRescorer(r Rescorer) *Usecase {
	u.rescore = func(ctx context.Context, userID string) error {
		_, err := r.ScoreUser(ctx, userID)
		return err
	}
	return u
}

type RegisterInput struct {
	UserID         string
	Type           credit.Type
	Principal      float64
	DurationMonths int
	// Rate overrides the credit type's default, e.g. from an approval.
	Rate *float64
	// RequestRef links the ledger row back to a long-form request.
	RequestRef *uint64
}

// RegisterCredit inserts a ledger row under the per-user lock, then triggers
// the ordered debt/restriction/score recompute chain.
func (u *Usecase) RegisterCredit(ctx context.Context, in RegisterInput) (*credit.DisbursedCredit, error) {
	var out *credit.DisbursedCredit
	err := u.uow.WithinUserTx(ctx, in.UserID, func(r uow.Repos, p *profile.FinancialProfile) error {
		c, err := u.RegisterIn(ctx, r, p, in)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.afterMutation(ctx, in.UserID)
	u.sink.Record(ctx, audit.Event{
		Action:   "credit_registered",
		UserID:   in.UserID,
		Entity:   "disbursed_credit",
		EntityID: out.CreditID,
		Detail:   map[string]any{"type": string(out.Type), "principal": out.Principal, "total": out.TotalAmount},
		At:       u.now().UTC(),
	})
	return out, nil
}

// RegisterIn is the transactional body of RegisterCredit, exposed so the
// request lifecycle can disburse inside its own transaction. The caller must
// hold the user lock (uow.WithinUserTx).
func (u *Usecase) RegisterIn(ctx context.Context, r uow.Repos, p *profile.FinancialProfile, in RegisterInput) (*credit.DisbursedCredit, error) {
	if in.Principal <= 0 {
		return nil, errs.Validation("principal", "must be greater than zero")
	}
	if !in.Type.Valid() {
		return nil, errs.Validation("type", "unknown credit type")
	}

	// Server-side recount under the user lock closes the read-then-write gap
	// on the active-credit cap.
	count, err := r.Credits.CountActiveByUser(ctx, p.UserID)
	if err != nil {
		return nil, errs.Dependency("ledger.count_active", err)
	}
	if int(count) >= u.limits.MaxActiveCredits {
		return nil, &errs.RestrictionError{
			Code:      "max_active_credits",
			Message:   "maximum number of active credits reached",
			Threshold: float64(u.limits.MaxActiveCredits),
			Actual:    float64(count),
		}
	}

	rate := in.Type.InterestRate()
	if in.Rate != nil {
		rate = *in.Rate
	}
	now := u.now().UTC()
	total := centAmount(in.Principal * (1 + rate))
	due := in.Type.DueDate(now)

	c := &credit.DisbursedCredit{
		CreditID:          id.NewID32(),
		UserID:            p.UserID,
		RequestRef:        in.RequestRef,
		Type:              in.Type,
		Principal:         in.Principal,
		TotalAmount:       total,
		RemainingAmount:   total,
		InterestRate:      rate,
		Status:            credit.StatusActive,
		ApprovedDate:      now,
		DueDate:           due,
		NextPaymentDate:   &due,
		NextPaymentAmount: total,
	}
	if err := r.Credits.Create(ctx, c); err != nil {
		return nil, errs.Dependency("ledger.create_credit", err)
	}

	if err := u.syncDebts(ctx, r, p); err != nil {
		return nil, err
	}
	if _, err := restriction.RefreshIn(ctx, r, p, u.limits, now, true); err != nil {
		return nil, errs.Dependency("ledger.refresh_restriction", err)
	}
	return c, nil
}

// ApplyPayment applies one payment under the per-credit lock. Overpayments
// are rejected and leave the ledger untouched.
func (u *Usecase) ApplyPayment(ctx context.Context, creditID string, amount float64) (*credit.DisbursedCredit, *credit.PaymentRecord, error) {
	var (
		outCredit  *credit.DisbursedCredit
		outPayment *credit.PaymentRecord
		userID     string
	)
	err := u.uow.WithinCreditTx(ctx, creditID, func(r uow.Repos, c *credit.DisbursedCredit) error {
		if amount <= 0 {
			return errs.Validation("amount", "must be greater than zero")
		}
		if c.Status == credit.StatusPaid {
			return &errs.StateConflictError{Entity: "credit", Current: string(c.Status), Attempted: "payment"}
		}
		if amount > c.RemainingAmount {
			return errs.Validation("amount", "exceeds remaining balance")
		}

		now := u.now().UTC()
		scheduled := c.DueDate
		if c.NextPaymentDate != nil {
			scheduled = *c.NextPaymentDate
		}
		late, daysLate := lateness(now, scheduled)

		p := &credit.PaymentRecord{
			CreditRef:    c.ID,
			UserID:       c.UserID,
			Amount:       amount,
			PaidAt:       now,
			ScheduledFor: scheduled,
			Late:         late,
			DaysLate:     daysLate,
		}
		if err := r.Payments.Append(ctx, p); err != nil {
			return errs.Dependency("ledger.append_payment", err)
		}

		c.RemainingAmount = centAmount(c.RemainingAmount - amount)
		if c.RemainingAmount <= 0 {
			c.RemainingAmount = 0
			c.Status = credit.StatusPaid
			c.NextPaymentDate = nil
			c.NextPaymentAmount = 0
		} else {
			c.NextPaymentAmount = c.RemainingAmount
		}
		if err := r.Credits.Save(ctx, c); err != nil {
			return errs.Dependency("ledger.save_credit", err)
		}

		prof, err := r.Profiles.GetByUserIDForUpdate(ctx, c.UserID)
		if err != nil {
			return errs.Dependency("ledger.load_profile", err)
		}
		if err := u.syncDebts(ctx, r, prof); err != nil {
			return err
		}
		if _, err := restriction.RefreshIn(ctx, r, prof, u.limits, now, false); err != nil {
			return errs.Dependency("ledger.refresh_restriction", err)
		}

		outCredit, outPayment, userID = c, p, c.UserID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	u.afterMutation(ctx, userID)
	u.sink.Record(ctx, audit.Event{
		Action:   "payment_applied",
		UserID:   userID,
		Entity:   "disbursed_credit",
		EntityID: outCredit.CreditID,
		Detail:   map[string]any{"amount": amount, "remaining": outCredit.RemainingAmount, "late": outPayment.Late},
		At:       u.now().UTC(),
	})
	return outCredit, outPayment, nil
}

// MarkOverdue flips active credits past their due date to overdue and
// refreshes the owners' restriction snapshots. Run from the scheduler.
func (u *Usecase) MarkOverdue(ctx context.Context) (int, error) {
	now := u.now().UTC()

	var due []credit.DisbursedCredit
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		due, err = r.Credits.ListActiveDueBefore(ctx, now)
		return err
	})
	if err != nil {
		return 0, errs.Dependency("ledger.list_due", err)
	}

	flipped := 0
	for i := range due {
		creditID := due[i].CreditID
		err := u.uow.WithinCreditTx(ctx, creditID, func(r uow.Repos, c *credit.DisbursedCredit) error {
			if c.Status != credit.StatusActive || c.DueDate.After(now) {
				return nil // changed since the scan
			}
			c.Status = credit.StatusOverdue
			if err := r.Credits.Save(ctx, c); err != nil {
				return err
			}
			prof, err := r.Profiles.GetByUserIDForUpdate(ctx, c.UserID)
			if err != nil {
				return err
			}
			_, err = restriction.RefreshIn(ctx, r, prof, u.limits, now, false)
			return err
		})
		if err != nil {
			u.log.WithError(err).WithField("credit_id", creditID).Warn("ledger: overdue sweep failed for credit")
			continue
		}
		flipped++
	}
	if flipped > 0 {
		u.log.WithField("count", flipped).Info("ledger: credits marked overdue")
	}
	return flipped, nil
}

// syncDebts recomputes the profile's aggregate active debt from the ledger.
func (u *Usecase) syncDebts(ctx context.Context, r uow.Repos, p *profile.FinancialProfile) error {
	total, err := r.Credits.SumActiveRemainingByUser(ctx, p.UserID)
	if err != nil {
		return errs.Dependency("ledger.sum_active", err)
	}
	if err := r.Profiles.UpdateDebts(ctx, p.UserID, total); err != nil {
		return errs.Dependency("ledger.update_debts", err)
	}
	p.ExistingDebts = total
	return nil
}

// Rescore exposes the post-commit recompute for callers that embed
// RegisterIn in their own transaction (the disbursement path).
func (u *Usecase) Rescore(ctx context.Context, userID string) {
	u.afterMutation(ctx, userID)
}

// afterMutation runs the score recompute strictly after the committed
// mutation. Failures are logged, not propagated.
func (u *Usecase) afterMutation(ctx context.Context, userID string) {
	if u.rescore == nil {
		return
	}
	if err := u.rescore(ctx, userID); err != nil {
		u.log.WithError(err).WithField("user_id", userID).Warn("ledger: score recompute failed")
	}
}

func lateness(paidAt, scheduled time.Time) (bool, int) {
	p := paidAt.Truncate(24 * time.Hour)
	s := scheduled.Truncate(24 * time.Hour)
	if !p.After(s) {
		return false, 0
	}
	return true, int(p.Sub(s).Hours() / 24)
}
