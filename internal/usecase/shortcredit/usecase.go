package shortcredit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/audit"
	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/internal/domain/profile"
	"microcredit-backend/internal/domain/uow"
	"microcredit-backend/internal/usecase/ledger"
	"microcredit-backend/internal/usecase/restriction"
)

// Usecase issues short-term credits in a single step: no draft, no review.
// Restriction evaluation and ledger insert share one transaction under the
// user lock, so two simultaneous requests cannot both pass the checks.
type Usecase struct {
	uow    uow.UnitOfWork
	ledger *ledger.Usecase
	limits restriction.Limits
	sink   audit.Sink
	log    *logrus.Logger
	now    func() time.Time
}

func NewUsecase(u uow.UnitOfWork, lw *ledger.Usecase, limits restriction.Limits, sink audit.Sink, log *logrus.Logger) *Usecase {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Usecase{uow: u, ledger: lw, limits: limits, sink: sink, log: log, now: time.Now}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

type IssueInput struct {
	UserID string
	Type   credit.Type
	Amount float64
}

// Issue validates, checks restrictions and registers the credit atomically.
func (u *Usecase) Issue(ctx context.Context, in IssueInput) (*credit.DisbursedCredit, error) {
	if in.Amount <= 0 {
		return nil, errs.Validation("amount", "must be greater than zero")
	}
	if !in.Type.Valid() {
		return nil, errs.Validation("type", "unknown credit type")
	}

	var out *credit.DisbursedCredit
	err := u.uow.WithinUserTx(ctx, in.UserID, func(r uow.Repos, p *profile.FinancialProfile) error {
		count, err := r.Credits.CountActiveByUser(ctx, in.UserID)
		if err != nil {
			return errs.Dependency("restriction.count_active", err)
		}
		totalDebt, err := r.Credits.SumActiveRemainingByUser(ctx, in.UserID)
		if err != nil {
			return errs.Dependency("restriction.sum_active", err)
		}
		prev, _ := r.Restrictions.GetByUserID(ctx, in.UserID)
		snapshot := restriction.Compute(p, int(count), totalDebt, prev, u.now().UTC(), u.limits)
		if err := restriction.Blocking(snapshot); err != nil {
			return err
		}

		c, err := u.ledger.RegisterIn(ctx, r, p, ledger.RegisterInput{
			UserID:    in.UserID,
			Type:      in.Type,
			Principal: in.Amount,
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.ledger.Rescore(ctx, in.UserID)
	u.sink.Record(ctx, audit.Event{
		Action:   "short_credit_issued",
		UserID:   in.UserID,
		Entity:   "disbursed_credit",
		EntityID: out.CreditID,
		Detail:   map[string]any{"type": string(out.Type), "amount": out.Principal, "due_date": out.DueDate},
		At:       u.now().UTC(),
	})
	return out, nil
}
