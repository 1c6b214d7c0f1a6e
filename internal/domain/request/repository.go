package request

import (
	"context"
	"time"
)

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, r *CreditRequest) error
	GetByRequestID(ctx context.Context, requestID string) (*CreditRequest, error)
	// Row-locked read; only valid inside a unit-of-work transaction.
	GetByRequestIDForUpdate(ctx context.Context, requestID string) (*CreditRequest, error)
	Save(ctx context.Context, r *CreditRequest) error
	Delete(ctx context.Context, r *CreditRequest) error
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]CreditRequest, error)
	// LatestDraftByUser returns (nil, nil) when the user has no draft.
	LatestDraftByUser(ctx context.Context, userID string) (*CreditRequest, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, h *ReviewHistory) error
	ListByRequest(ctx context.Context, requestRef uint64) ([]ReviewHistory, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByDocumentID(ctx context.Context, documentID string) (*Document, error)
	ListByRequest(ctx context.Context, requestRef uint64) ([]Document, error)
	Delete(ctx context.Context, d *Document) error
}
