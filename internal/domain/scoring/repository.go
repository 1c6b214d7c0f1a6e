package scoring

import "context"

type Repository interface {
	Create(ctx context.Context, r *Result) error
	LatestByUser(ctx context.Context, userID string) (*Result, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Result, error)
}
