package credit

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *DisbursedCredit) error
	GetByCreditID(ctx context.Context, creditID string) (*DisbursedCredit, error)
	// Row-locked read; only valid inside a unit-of-work transaction.
	GetByCreditIDForUpdate(ctx context.Context, creditID string) (*DisbursedCredit, error)
	Save(ctx context.Context, c *DisbursedCredit) error
	ListByUser(ctx context.Context, userID string) ([]DisbursedCredit, error)
	ListActiveByUser(ctx context.Context, userID string) ([]DisbursedCredit, error)
	// CountActiveByUser recounts open credits server-side; the unit of work
	// relies on it for the atomic check-and-insert.
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	SumActiveRemainingByUser(ctx context.Context, userID string) (float64, error)
	ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]DisbursedCredit, error)
}

type PaymentRepository interface {
	Append(ctx context.Context, p *PaymentRecord) error
	ListByCredit(ctx context.Context, creditRef uint64) ([]PaymentRecord, error)
	LastPaymentAt(ctx context.Context, userID string) (*time.Time, error)
}
