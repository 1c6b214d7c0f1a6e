package restriction

import "context"

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*DebtRestriction, error)
	// Upsert replaces the user's snapshot, keyed on user id.
	Upsert(ctx context.Context, r *DebtRestriction) error
}
