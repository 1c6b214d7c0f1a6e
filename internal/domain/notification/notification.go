package notification

import (
	"context"

	"microcredit-backend/internal/domain/request"
)

// Port delivers best-effort notifications. A failed delivery must never roll
// back the operation that triggered it.
type Port interface {
	NotifyReviewers(ctx context.Context, r *request.CreditRequest) error
}

type Nop struct{}

func (Nop) NotifyReviewers(context.Context, *request.CreditRequest) error { return nil }
