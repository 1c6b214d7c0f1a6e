package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microcredit-backend/internal/domain/errs"
	requestDomain "microcredit-backend/internal/domain/request"
)

type RequestRepository struct{ db *gorm.DB }

func NewRequestRepository(db *gorm.DB) *RequestRepository { return &RequestRepository{db: db} }

func (r *RequestRepository) Create(ctx context.Context, req *requestDomain.CreditRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*requestDomain.CreditRequest, error) {
	var out requestDomain.CreditRequest
	res := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *RequestRepository) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*requestDomain.CreditRequest, error) {
	var out requestDomain.CreditRequest
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *RequestRepository) Save(ctx context.Context, req *requestDomain.CreditRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequestRepository) Delete(ctx context.Context, req *requestDomain.CreditRequest) error {
	return r.db.WithContext(ctx).Delete(req).Error
}

func (r *RequestRepository) ListByUser(ctx context.Context, userID string, f requestDomain.ListFilter) ([]requestDomain.CreditRequest, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []requestDomain.CreditRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RequestRepository) LatestDraftByUser(ctx context.Context, userID string) (*requestDomain.CreditRequest, error) {
	var out requestDomain.CreditRequest
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, requestDomain.StatusDraft).
		Order("created_at DESC, id DESC").
		First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *RequestRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&requestDomain.CreditRequest{}).
		Unscoped().
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

type HistoryRepository struct{ db *gorm.DB }

func NewHistoryRepository(db *gorm.DB) *HistoryRepository { return &HistoryRepository{db: db} }

func (r *HistoryRepository) Append(ctx context.Context, h *requestDomain.ReviewHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *HistoryRepository) ListByRequest(ctx context.Context, requestRef uint64) ([]requestDomain.ReviewHistory, error) {
	var out []requestDomain.ReviewHistory
	err := r.db.WithContext(ctx).
		Where("request_ref = ?", requestRef).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type DocumentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) *DocumentRepository { return &DocumentRepository{db: db} }

func (r *DocumentRepository) Create(ctx context.Context, d *requestDomain.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) GetByDocumentID(ctx context.Context, documentID string) (*requestDomain.Document, error) {
	var out requestDomain.Document
	res := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *DocumentRepository) ListByRequest(ctx context.Context, requestRef uint64) ([]requestDomain.Document, error) {
	var out []requestDomain.Document
	err := r.db.WithContext(ctx).
		Where("request_ref = ?", requestRef).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, d *requestDomain.Document) error {
	return r.db.WithContext(ctx).Delete(d).Error
}
