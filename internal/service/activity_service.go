package service

import (
	"context"
	"fmt"
	"strings"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

// ActivityPageSize is the number of activities per feed page
const ActivityPageSize = 10

type activityService struct {
	tx            repository.Transactor
	activities    repository.ActivityRepository
	categories    LeaderboardService
	awards        AwardService
	ranking       RankingService
	notifications NotificationService
	cache         *CacheService
	logger        *zap.Logger
	now           Clock
}

// NewActivityService creates the activity lifecycle service
func NewActivityService(
	repos *repository.Repositories,
	categories LeaderboardService,
	awards AwardService,
	ranking RankingService,
	notifications NotificationService,
	cache *CacheService,
	logger *zap.Logger,
	now Clock,
) ActivityService {
	return &activityService{
		tx:            repos.Tx,
		activities:    repos.Activity,
		categories:    categories,
		awards:        awards,
		ranking:       ranking,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		now:           now,
	}
}

// Create stores a new activity. Staff submissions are approved immediately, others wait
// for moderation.
func (s *activityService) Create(ctx context.Context, actor *domain.User, input domain.ActivityInput) (*domain.Activity, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	a := &domain.Activity{CreatorID: actor.ID, IsApproved: actor.CanModerate()}
	applyInput(a, input)
	a.IsActive = a.ActiveAt(s.now())

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.activities.Create(ctx, a); err != nil {
			return err
		}
		ids, err := s.linkCategories(ctx, a.ID, input.Leaderboards)
		if err != nil {
			return err
		}
		a.Leaderboards = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Activity created",
		zap.Int64("activity_id", a.ID),
		zap.Int64("creator_id", actor.ID),
		zap.Bool("approved", a.IsApproved))
	return a, nil
}

// Approve publishes a pending activity and notifies its creator
func (s *activityService) Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Activity, error) {
	if !actor.CanModerate() {
		return nil, domain.ErrUnauthorized
	}

	found, err := s.activities.SetApproved(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrActivityNotFound
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, a.CreatorID, "Activity approved",
		fmt.Sprintf("Your activity %q has been approved and is now visible to everyone.", a.Title))

	s.logger.Info("Activity approved",
		zap.Int64("activity_id", id),
		zap.Int64("actor_id", actor.ID))
	return a, nil
}

// Update edits an activity. When an inactive activity is moved to a future date it becomes
// active again and every award it already gave out is reversed in the same transaction.
func (s *activityService) Update(ctx context.Context, actor *domain.User, id int64, input domain.ActivityInput) (*domain.Activity, error) {
	if !actor.CanModerate() {
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	var (
		updated  *domain.Activity
		reversed int
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.activities.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrActivityNotFound
		}

		wasActive := existing.IsActive && existing.ActiveAt(now)
		applyInput(existing, input)
		existing.IsActive = existing.ActiveAt(now)

		if !wasActive && existing.StartsAfter(now) {
			if reversed, err = s.awards.ReverseActivity(ctx, id); err != nil {
				return err
			}
		}

		if err := s.activities.Update(ctx, existing); err != nil {
			return err
		}

		ids, err := s.linkCategories(ctx, id, input.Leaderboards)
		if err != nil {
			return err
		}
		existing.Leaderboards = ids
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Points per category depend on the links and on the activity's point value.
	s.cache.InvalidateLeaderboards(ctx)

	s.logger.Info("Activity updated",
		zap.Int64("activity_id", id),
		zap.Int64("actor_id", actor.ID),
		zap.Bool("active", updated.IsActive),
		zap.Int("reversed_awards", reversed))
	return updated, nil
}

// Delete removes an activity. Its participations go with it, points already credited stay.
func (s *activityService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if !actor.CanModerate() {
		return domain.ErrUnauthorized
	}

	found, err := s.activities.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrActivityNotFound
	}

	if _, err := s.ranking.RecomputeMonthly(ctx); err != nil {
		s.logger.Warn("Failed to recompute ranks after activity delete",
			zap.Int64("activity_id", id),
			zap.Error(err))
	}
	s.cache.InvalidateLeaderboards(ctx)

	s.logger.Info("Activity deleted",
		zap.Int64("activity_id", id),
		zap.Int64("actor_id", actor.ID))
	return nil
}

func (s *activityService) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrActivityNotFound
	}
	return a, nil
}

// List returns one page of the approved feed. NextOffset is set when more remain.
func (s *activityService) List(ctx context.Context, offset int) (*domain.ActivityPage, error) {
	if offset < 0 {
		offset = 0
	}

	activities, err := s.activities.ListApproved(ctx, ActivityPageSize+1, offset)
	if err != nil {
		return nil, err
	}

	page := &domain.ActivityPage{Activities: activities}
	if len(activities) > ActivityPageSize {
		page.Activities = activities[:ActivityPageSize]
		next := offset + ActivityPageSize
		page.NextOffset = &next
	}
	if page.Activities == nil {
		page.Activities = []domain.Activity{}
	}
	return page, nil
}

func (s *activityService) ListPending(ctx context.Context, actor *domain.User) ([]domain.Activity, error) {
	if !actor.CanModerate() {
		return nil, domain.ErrUnauthorized
	}
	return s.activities.ListPending(ctx)
}

// ToggleInterest bookmarks or un-bookmarks the activity for actor
func (s *activityService) ToggleInterest(ctx context.Context, actor *domain.User, id int64) (bool, error) {
	if actor == nil {
		return false, domain.ErrUnauthorized
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return s.activities.ToggleInterest(ctx, actor.ID, id)
}

func (s *activityService) IsInterested(ctx context.Context, actor *domain.User, id int64) (bool, error) {
	if actor == nil {
		return false, domain.ErrUnauthorized
	}
	return s.activities.IsInterested(ctx, actor.ID, id)
}

// DeactivateExpired marks activities whose last day is before today as inactive
func (s *activityService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.activities.DeactivateExpired(ctx, domain.StartOfDay(s.now()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Expired activities deactivated", zap.Int64("count", n))
	}
	return n, nil
}

// linkCategories upserts the named categories and links them to the activity
func (s *activityService) linkCategories(ctx context.Context, activityID int64, names []string) ([]int64, error) {
	seen := make(map[string]bool, len(names))
	ids := make([]int64, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		id, err := s.categories.UpsertCategory(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := s.activities.SetLeaderboards(ctx, activityID, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func applyInput(a *domain.Activity, in domain.ActivityInput) {
	a.Title = strings.TrimSpace(in.Title)
	a.Description = in.Description
	a.Address = in.Address
	a.Latitude = in.Latitude
	a.Longitude = in.Longitude
	a.EventDate = in.EventDate
	a.EndDate = in.EndDate
	a.Photo = in.Photo
	a.Points = in.Points
}
