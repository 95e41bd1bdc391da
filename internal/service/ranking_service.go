package service

import (
	"context"
	"fmt"
	"sort"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

// rankable is an entity listed on a leaderboard
type rankable struct {
	ID   int64
	Name string
}

// rankStandings lists every entity with its total (zero when absent from totals), ordered by
// points descending with ties broken by ascending id. Rank is the 1-based position.
func rankStandings(entities []rankable, totals []domain.PointsTotal) []domain.StandingEntry {
	points := make(map[int64]int, len(totals))
	for _, t := range totals {
		points[t.ID] += t.Points
	}

	entries := make([]domain.StandingEntry, 0, len(entities))
	for _, e := range entities {
		entries = append(entries, domain.StandingEntry{ID: e.ID, Name: e.Name, Points: points[e.ID]})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].ID < entries[j].ID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

type rankingService struct {
	teams          repository.TeamRepository
	participations repository.ParticipationRepository
	logger         *zap.Logger
	now            Clock
}

// NewRankingService creates the monthly team ranking service
func NewRankingService(teams repository.TeamRepository, participations repository.ParticipationRepository, logger *zap.Logger, now Clock) RankingService {
	return &rankingService{
		teams:          teams,
		participations: participations,
		logger:         logger,
		now:            now,
	}
}

// RecomputeMonthly ranks every team by points earned since the first instant of the current
// month and writes the ranks back. Called inside award and reversal transactions, so the
// ctx may carry a transaction.
func (s *rankingService) RecomputeMonthly(ctx context.Context) (map[int64]int, error) {
	monthStart := domain.MonthStart(s.now())

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for ranking: %w", err)
	}

	totals, err := s.participations.SumByTeam(ctx, domain.LeaderboardFilter{Since: &monthStart})
	if err != nil {
		return nil, fmt.Errorf("failed to sum monthly team points: %w", err)
	}

	entities := make([]rankable, len(teams))
	for i, t := range teams {
		entities[i] = rankable{ID: t.ID, Name: t.Name}
	}

	ranks := make(map[int64]int, len(teams))
	for _, e := range rankStandings(entities, totals) {
		ranks[e.ID] = e.Rank
	}

	if err := s.teams.UpdateRanks(ctx, ranks); err != nil {
		return nil, fmt.Errorf("failed to store monthly ranks: %w", err)
	}

	s.logger.Debug("Monthly team ranks recomputed",
		zap.Int("teams", len(ranks)),
		zap.Time("month_start", monthStart))
	return ranks, nil
}
