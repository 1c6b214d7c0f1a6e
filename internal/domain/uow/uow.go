package uow

import (
	"context"

	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/profile"
	"microcredit-backend/internal/domain/request"
	"microcredit-backend/internal/domain/restriction"
	"microcredit-backend/internal/domain/scoring"
)

type Repos struct {
	Profiles     profile.Repository
	Requests     request.Repository
	History      request.HistoryRepository
	Documents    request.DocumentRepository
	Credits      credit.Repository
	Payments     credit.PaymentRepository
	Restrictions restriction.Repository
	Scores       scoring.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinUserTx locks the user's profile row first, serializing the
	// evaluate-then-create sequence for one user. The create paths
	// (request submission, credit registration) must run under this.
	WithinUserTx(ctx context.Context, userID string, fn func(r Repos, p *profile.FinancialProfile) error) error
	// WithinCreditTx locks one credit row, serializing concurrent payments
	// against the same credit.
	WithinCreditTx(ctx context.Context, creditID string, fn func(r Repos, c *credit.DisbursedCredit) error) error
}
