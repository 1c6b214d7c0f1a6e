package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/audit"
	"microcredit-backend/internal/domain/errs"
	domainProfile "microcredit-backend/internal/domain/profile"
	domain "microcredit-backend/internal/domain/scoring"
)

// Service wraps the pure engine with persistence and auditing. Every
// invocation is recorded; a failed record never fails the scoring call.
type Service struct {
	profiles domainProfile.Repository
	scores   domain.Repository
	sink     audit.Sink
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(profiles domainProfile.Repository, scores domain.Repository, sink audit.Sink, log *logrus.Logger) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{profiles: profiles, scores: scores, sink: sink, log: log, now: time.Now}
}

// WithClock overrides the time source; tests use it.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScoreUser loads the user's financial profile, runs the engine and persists
// the result.
func (s *Service) ScoreUser(ctx context.Context, userID string) (Outcome, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Outcome{}, errs.ErrNotFound
		}
		// A failed read is not a missing profile; callers must not 404 it.
		return Outcome{}, errs.Dependency("scoring.load_profile", err)
	}
	return s.ScoreProfile(ctx, p, nil)
}

// ScoreProfile scores an already-loaded profile. requestID, when set, links
// the stored result to a credit request.
func (s *Service) ScoreProfile(ctx context.Context, p *domainProfile.FinancialProfile, requestID *string) (Outcome, error) {
	out := ComputeScore(Input{
		MonthlyIncome:  p.MonthlyIncome,
		OtherIncome:    p.OtherIncome,
		MonthlyCharges: p.MonthlyCharges,
		ExistingDebts:  p.ExistingDebts,
	})
	out.Result.UserID = p.UserID
	out.Result.RequestID = requestID

	if err := s.scores.Create(ctx, &out.Result); err != nil {
		// The assessment itself is still valid; losing the stored row is a
		// dependency problem, not a scoring problem.
		s.log.WithError(err).WithField("user_id", p.UserID).Warn("scoring: could not persist result")
	}

	s.sink.Record(ctx, audit.Event{
		Action:   "score_calculated",
		UserID:   p.UserID,
		Entity:   "credit_scoring",
		EntityID: p.UserID,
		Detail: map[string]any{
			"score":    out.Result.Score,
			"decision": string(out.Result.Decision),
			"degraded": out.Degraded,
		},
		At: s.now().UTC(),
	})
	return out, nil
}

// History returns the most recent stored results for a user, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.scores.ListByUser(ctx, userID, limit)
}

// Latest returns the newest stored result, or (nil, nil) when the user has
// never been scored.
func (s *Service) Latest(ctx context.Context, userID string) (*domain.Result, error) {
	res, err := s.scores.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return nil, errs.Dependency("scoring.latest", err)
	}
	return res, nil
}
