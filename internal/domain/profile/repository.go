package profile

import "context"

type Repository interface {
	Create(ctx context.Context, p *FinancialProfile) error
	GetByUserID(ctx context.Context, userID string) (*FinancialProfile, error)
	// Row-locked read; only valid inside a unit-of-work transaction.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*FinancialProfile, error)
	Save(ctx context.Context, p *FinancialProfile) error
	// UpdateDebts overwrites the aggregated active-debt figure on the profile.
	UpdateDebts(ctx context.Context, userID string, totalDebt float64) error
}
