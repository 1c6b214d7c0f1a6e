package mysql

import (
	"context"

	"gorm.io/gorm"

	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/profile"
	"microcredit-backend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func txRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Profiles:     &ProfileRepository{db: tx},
		Requests:     &RequestRepository{db: tx},
		History:      &HistoryRepository{db: tx},
		Documents:    &DocumentRepository{db: tx},
		Credits:      &CreditRepository{db: tx},
		Payments:     &PaymentRepository{db: tx},
		Restrictions: &RestrictionRepository{db: tx},
		Scores:       &ScoringRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos(tx))
	})
}

func (u *GormUoW) WithinUserTx(ctx context.Context, userID string, fn func(r uow.Repos, p *profile.FinancialProfile) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		// lock the profile row up-front; one writer per user at a time
		p, err := r.Profiles.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		return fn(r, p)
	})
}

func (u *GormUoW) WithinCreditTx(ctx context.Context, creditID string, fn func(r uow.Repos, c *credit.DisbursedCredit) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		// lock the credit row up-front to serialize concurrent payments
		c, err := r.Credits.GetByCreditIDForUpdate(ctx, creditID)
		if err != nil {
			return err
		}
		return fn(r, c)
	})
}
