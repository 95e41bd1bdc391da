package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type leaderboardService struct {
	users          repository.UserRepository
	teams          repository.TeamRepository
	participations repository.ParticipationRepository
	categories     repository.LeaderboardRepository
	cache          *CacheService
	logger         *zap.Logger
	now            Clock
}

// NewLeaderboardService creates the standings and category service
func NewLeaderboardService(repos *repository.Repositories, cache *CacheService, logger *zap.Logger, now Clock) LeaderboardService {
	return &leaderboardService{
		users:          repos.User,
		teams:          repos.Team,
		participations: repos.Participation,
		categories:     repos.Leaderboard,
		cache:          cache,
		logger:         logger,
		now:            now,
	}
}

// Query computes ranked standings. Every user (or team) is listed, entities without
// points in the window appear with 0.
func (s *leaderboardService) Query(ctx context.Context, q domain.LeaderboardQuery) (*domain.Standings, error) {
	if q.Mode == "" {
		q.Mode = domain.ModeIndividual
	}
	if q.DateFilter == "" {
		q.DateFilter = domain.FilterAllTime
	}
	if q.Mode != domain.ModeIndividual && q.Mode != domain.ModeTeam {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, q.Mode)
	}

	if q.LeaderboardID != nil {
		category, err := s.categories.GetByID(ctx, *q.LeaderboardID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, domain.ErrLeaderboardNotFound
		}
	}

	now := s.now()
	window := q.DateFilter.WindowStart(now)

	return s.cache.GetStandings(ctx, q, window, func(ctx context.Context) (*domain.Standings, error) {
		return s.compute(ctx, q, window, now)
	})
}

func (s *leaderboardService) compute(ctx context.Context, q domain.LeaderboardQuery, window *time.Time, now time.Time) (*domain.Standings, error) {
	filter := domain.LeaderboardFilter{Since: window, LeaderboardID: q.LeaderboardID}

	var (
		entities []rankable
		totals   []domain.PointsTotal
		err      error
	)

	switch q.Mode {
	case domain.ModeTeam:
		teams, listErr := s.teams.List(ctx)
		if listErr != nil {
			return nil, listErr
		}
		for _, t := range teams {
			entities = append(entities, rankable{ID: t.ID, Name: t.Name})
		}
		totals, err = s.participations.SumByTeam(ctx, filter)
	default:
		users, listErr := s.users.List(ctx)
		if listErr != nil {
			return nil, listErr
		}
		for _, u := range users {
			entities = append(entities, rankable{ID: u.ID, Name: u.FullName()})
		}
		totals, err = s.participations.SumByUser(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Leaderboard computed",
		zap.String("mode", string(q.Mode)),
		zap.String("date_filter", string(q.DateFilter)),
		zap.Int("entries", len(entities)))

	return &domain.Standings{
		Mode:          q.Mode,
		DateFilter:    q.DateFilter,
		LeaderboardID: q.LeaderboardID,
		WindowStart:   window,
		Entries:       rankStandings(entities, totals),
		GeneratedAt:   now,
	}, nil
}

func (s *leaderboardService) ListCategories(ctx context.Context) ([]domain.Leaderboard, error) {
	return s.cache.GetCategories(ctx, s.categories.List)
}

func (s *leaderboardService) GetCategory(ctx context.Context, id int64) (*domain.Leaderboard, error) {
	lb, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, domain.ErrLeaderboardNotFound
	}
	return lb, nil
}

// UpsertCategory returns the id of the named category, creating it when missing
func (s *leaderboardService) UpsertCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidCategory
	}
	id, err := s.categories.Upsert(ctx, name)
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateCategories()
	return id, nil
}

// UpdateCategory edits a category. Staff only.
func (s *leaderboardService) UpdateCategory(ctx context.Context, actor *domain.User, id int64, input domain.LeaderboardInput) (*domain.Leaderboard, error) {
	if !actor.CanModerate() {
		return nil, domain.ErrUnauthorized
	}

	lb := &domain.Leaderboard{
		ID:    id,
		Name:  strings.TrimSpace(input.Name),
		Logo:  input.Logo,
		Color: input.Color,
	}
	found, err := s.categories.Update(ctx, lb)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrLeaderboardNotFound
	}

	s.cache.InvalidateCategories()
	return lb, nil
}
