package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	creditDomain "microcredit-backend/internal/domain/credit"
)

var openStatuses = []creditDomain.Status{creditDomain.StatusActive, creditDomain.StatusOverdue}

type CreditRepository struct{ db *gorm.DB }

func NewCreditRepository(db *gorm.DB) *CreditRepository { return &CreditRepository{db: db} }

func (r *CreditRepository) Create(ctx context.Context, c *creditDomain.DisbursedCredit) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CreditRepository) GetByCreditID(ctx context.Context, creditID string) (*creditDomain.DisbursedCredit, error) {
	var out creditDomain.DisbursedCredit
	res := r.db.WithContext(ctx).Where("credit_id = ?", creditID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *CreditRepository) GetByCreditIDForUpdate(ctx context.Context, creditID string) (*creditDomain.DisbursedCredit, error) {
	var out creditDomain.DisbursedCredit
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("credit_id = ?", creditID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *CreditRepository) Save(ctx context.Context, c *creditDomain.DisbursedCredit) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CreditRepository) ListByUser(ctx context.Context, userID string) ([]creditDomain.DisbursedCredit, error) {
	var out []creditDomain.DisbursedCredit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditRepository) ListActiveByUser(ctx context.Context, userID string) ([]creditDomain.DisbursedCredit, error) {
	var out []creditDomain.DisbursedCredit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, openStatuses).
		Order("due_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&creditDomain.DisbursedCredit{}).
		Where("user_id = ? AND status IN ?", userID, openStatuses).
		Count(&n).Error
	return n, err
}

func (r *CreditRepository) SumActiveRemainingByUser(ctx context.Context, userID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&creditDomain.DisbursedCredit{}).
		Select("COALESCE(SUM(remaining_amount), 0)").
		Where("user_id = ? AND status IN ?", userID, openStatuses).
		Scan(&total).Error
	return total, err
}

func (r *CreditRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]creditDomain.DisbursedCredit, error) {
	var out []creditDomain.DisbursedCredit
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", creditDomain.StatusActive, cutoff).
		Order("due_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Append(ctx context.Context, p *creditDomain.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) ListByCredit(ctx context.Context, creditRef uint64) ([]creditDomain.PaymentRecord, error) {
	var out []creditDomain.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("credit_ref = ?", creditRef).
		Order("paid_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepository) LastPaymentAt(ctx context.Context, userID string) (*time.Time, error) {
	var p creditDomain.PaymentRecord
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("paid_at DESC, id DESC").
		First(&p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &p.PaidAt, nil
}
