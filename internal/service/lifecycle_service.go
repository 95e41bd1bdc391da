package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"engage/pkg/logger"
)

// DefaultLifecycleInterval is used when no interval is configured
const DefaultLifecycleInterval = 5 * time.Minute

// lifecycleService periodically deactivates past activities and refreshes the monthly
// team ranks, so a month rollover resets ranks even when nobody is awarded points.
type lifecycleService struct {
	activities ActivityService
	ranking    RankingService
	cache      *CacheService
	logger     *logger.Logger
	interval   time.Duration
	now        Clock

	mu        sync.Mutex
	isRunning bool
	ticker    *time.Ticker
	stop      chan struct{}
	done      chan struct{}
}

// NewLifecycleService creates the maintenance worker
func NewLifecycleService(activities ActivityService, ranking RankingService, cache *CacheService, logger *logger.Logger, interval time.Duration, now Clock) LifecycleService {
	if interval <= 0 {
		interval = DefaultLifecycleInterval
	}
	return &lifecycleService{
		activities: activities,
		ranking:    ranking,
		cache:      cache,
		logger:     logger.WithField("component", "lifecycle"),
		interval:   interval,
		now:        now,
	}
}

// Start runs one pass immediately and then one per interval
func (s *lifecycleService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.logger.WithField("interval", s.interval.String()).Info("Starting lifecycle service...")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Warn("Initial lifecycle pass failed, will retry on next tick")
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.tickRoutine(ctx, s.ticker, s.stop, s.done)

	s.isRunning = true
	s.logger.Info("Lifecycle service started successfully")
	return nil
}

// Stop signals the routine and waits for it, or for ctx to expire
func (s *lifecycleService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping lifecycle service...")

	s.ticker.Stop()
	close(s.stop)
	s.isRunning = false

	select {
	case <-s.done:
		s.logger.Info("Lifecycle service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce deactivates expired activities and recomputes monthly ranks
func (s *lifecycleService) RunOnce(ctx context.Context) error {
	start := s.now()

	deactivated, deactivateErr := s.activities.DeactivateExpired(ctx)
	if deactivateErr != nil {
		s.logger.WithError(deactivateErr).Error("Failed to deactivate expired activities")
	}

	ranks, rankErr := s.ranking.RecomputeMonthly(ctx)
	if rankErr != nil {
		s.logger.WithError(rankErr).Error("Failed to recompute monthly ranks")
	}

	if err := errors.Join(deactivateErr, rankErr); err != nil {
		return err
	}

	s.cache.MarkLifecycleRun(ctx, start)
	if deactivated > 0 {
		s.cache.InvalidateLeaderboards(ctx)
	}

	s.logger.WithFields(map[string]interface{}{
		"deactivated": deactivated,
		"teams":       len(ranks),
	}).Debug("Lifecycle pass completed")
	return nil
}

func (s *lifecycleService) tickRoutine(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.WithError(err).Error("Periodic lifecycle pass failed")
			}
		case <-stop:
			s.logger.Debug("Lifecycle routine stopped")
			return
		case <-ctx.Done():
			s.logger.Debug("Lifecycle routine cancelled")
			return
		}
	}
}
