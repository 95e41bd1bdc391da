package service

import (
	"context"
	"fmt"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type awardService struct {
	tx             repository.Transactor
	users          repository.UserRepository
	activities     repository.ActivityRepository
	participations repository.ParticipationRepository
	ranking        RankingService
	cache          *CacheService
	logger         *zap.Logger
	now            Clock
}

// NewAwardService creates the point award engine
func NewAwardService(repos *repository.Repositories, ranking RankingService, cache *CacheService, logger *zap.Logger, now Clock) AwardService {
	return &awardService{
		tx:             repos.Tx,
		users:          repos.User,
		activities:     repos.Activity,
		participations: repos.Participation,
		ranking:        ranking,
		cache:          cache,
		logger:         logger,
		now:            now,
	}
}

// Award credits the activity's points to userID exactly once. The actor may award
// themselves; staff may award anyone. Pending activities award nothing until approved.
func (s *awardService) Award(ctx context.Context, actor *domain.User, userID, activityID int64) (*domain.AwardResult, error) {
	if actor == nil || (actor.ID != userID && !actor.CanModerate()) {
		return nil, domain.ErrUnauthorized
	}

	release, ok := s.cache.AcquireAwardLock(ctx, userID, activityID)
	if !ok {
		// The holder may already have committed.
		if exists, err := s.participations.Exists(ctx, userID, activityID); err == nil && exists {
			return nil, domain.ErrAlreadyAwarded
		}
		return nil, domain.ErrAwardInProgress
	}
	defer release()

	var result domain.AwardResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		activity, err := s.activities.GetByID(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			return domain.ErrActivityNotFound
		}
		if !activity.IsApproved {
			return domain.ErrActivityNotApproved
		}

		p, inserted, err := s.participations.Insert(ctx, userID, activityID, s.now())
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyAwarded
		}

		balance, lifetime, err := s.users.AddPoints(ctx, userID, activity.Points)
		if err != nil {
			return err
		}

		if _, err := s.ranking.RecomputeMonthly(ctx); err != nil {
			return err
		}

		result = domain.AwardResult{
			Participation:  *p,
			PointsAwarded:  activity.Points,
			Balance:        balance,
			LifetimePoints: lifetime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLeaderboards(ctx)

	s.logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.Int64("activity_id", activityID),
		zap.Int("points", result.PointsAwarded),
		zap.Int64("actor_id", actor.ID))
	return &result, nil
}

// ReverseActivity takes the activity's points back from every participant and deletes their
// participation rows, all in one transaction. When ctx already carries a transaction the
// reversal joins it and the caller invalidates the standings again once that commits.
func (s *awardService) ReverseActivity(ctx context.Context, activityID int64) (int, error) {
	var reversed int
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		activity, err := s.activities.GetByID(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			return domain.ErrActivityNotFound
		}

		participations, err := s.participations.ListByActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if len(participations) == 0 {
			return nil
		}

		for _, p := range participations {
			if _, _, err := s.users.AddPoints(ctx, p.UserID, -activity.Points); err != nil {
				return fmt.Errorf("failed to reverse points for user %d: %w", p.UserID, err)
			}
		}

		if _, err := s.participations.DeleteByActivity(ctx, activityID); err != nil {
			return err
		}

		if _, err := s.ranking.RecomputeMonthly(ctx); err != nil {
			return err
		}

		reversed = len(participations)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if reversed > 0 {
		s.cache.InvalidateLeaderboards(ctx)
		s.logger.Info("Activity awards reversed",
			zap.Int64("activity_id", activityID),
			zap.Int("participants", reversed))
	}
	return reversed, nil
}
