package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microcredit-backend/internal/domain/errs"
	profileDomain "microcredit-backend/internal/domain/profile"
)

// notFound maps gorm's sentinel to the domain one so usecases never import
// gorm.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return err
}

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) Create(ctx context.Context, p *profileDomain.FinancialProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*profileDomain.FinancialProfile, error) {
	var out profileDomain.FinancialProfile
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *ProfileRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*profileDomain.FinancialProfile, error) {
	var out profileDomain.FinancialProfile
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p *profileDomain.FinancialProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProfileRepository) UpdateDebts(ctx context.Context, userID string, totalDebt float64) error {
	return r.db.WithContext(ctx).
		Model(&profileDomain.FinancialProfile{}).
		Where("user_id = ?", userID).
		Update("existing_debts", totalDebt).Error
}
