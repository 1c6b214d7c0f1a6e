package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	restrictionDomain "microcredit-backend/internal/domain/restriction"
)

type RestrictionRepository struct{ db *gorm.DB }

func NewRestrictionRepository(db *gorm.DB) *RestrictionRepository {
	return &RestrictionRepository{db: db}
}

func (r *RestrictionRepository) GetByUserID(ctx context.Context, userID string) (*restrictionDomain.DebtRestriction, error) {
	var out restrictionDomain.DebtRestriction
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

// Upsert keys on user_id; one snapshot row per user.
func (r *RestrictionRepository) Upsert(ctx context.Context, snap *restrictionDomain.DebtRestriction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"can_apply", "max_active_credits", "active_credit_count",
				"total_active_debt", "debt_ratio", "blocking_reason", "reasons",
				"last_application_date", "next_eligible_date", "cooldown_days_left",
				"updated_at",
			}),
		}).
		Create(snap).Error
}
