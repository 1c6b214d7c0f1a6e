package mysql

import (
	"context"

	"gorm.io/gorm"

	scoringDomain "microcredit-backend/internal/domain/scoring"
)

type ScoringRepository struct{ db *gorm.DB }

func NewScoringRepository(db *gorm.DB) *ScoringRepository { return &ScoringRepository{db: db} }

func (r *ScoringRepository) Create(ctx context.Context, res *scoringDomain.Result) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ScoringRepository) LatestByUser(ctx context.Context, userID string) (*scoringDomain.Result, error) {
	var out scoringDomain.Result
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *ScoringRepository) ListByUser(ctx context.Context, userID string, limit int) ([]scoringDomain.Result, error) {
	var out []scoringDomain.Result
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
