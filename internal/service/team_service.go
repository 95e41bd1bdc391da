package service

import (
	"context"
	"strings"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type teamService struct {
	tx      repository.Transactor
	teams   repository.TeamRepository
	ranking RankingService
	cache   *CacheService
	logger  *zap.Logger
}

// NewTeamService creates the team membership service
func NewTeamService(repos *repository.Repositories, ranking RankingService, cache *CacheService, logger *zap.Logger) TeamService {
	return &teamService{
		tx:      repos.Tx,
		teams:   repos.Team,
		ranking: ranking,
		cache:   cache,
		logger:  logger,
	}
}

// Create makes a new team led by actor, who becomes its first member
func (s *teamService) Create(ctx context.Context, actor *domain.User, req domain.CreateTeamRequest) (*domain.Team, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	team := &domain.Team{
		Name:     strings.TrimSpace(req.Name),
		Image:    req.Image,
		LeaderID: &actor.ID,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.teams.TeamOfUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.ErrAlreadyOnTeam
		}

		if err := s.teams.Create(ctx, team); err != nil {
			return err
		}
		if err := s.teams.AddMember(ctx, team.ID, actor.ID); err != nil {
			return err
		}

		ranks, err := s.ranking.RecomputeMonthly(ctx)
		if err != nil {
			return err
		}
		team.MonthlyRank = ranks[team.ID]
		team.MemberCount = 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLeaderboards(ctx)
	s.logger.Info("Team created",
		zap.Int64("team_id", team.ID),
		zap.Int64("leader_id", actor.ID))
	return team, nil
}

// Join adds actor to the team. Joining the team the user already belongs to is a no-op.
func (s *teamService) Join(ctx context.Context, actor *domain.User, teamID int64) (*domain.Team, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	var team *domain.Team
	joined := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return domain.ErrTeamNotFound
		}

		current, err := s.teams.TeamOfUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if current != nil {
			if current.ID == teamID {
				return nil
			}
			return domain.ErrAlreadyOnTeam
		}

		if err := s.teams.AddMember(ctx, teamID, actor.ID); err != nil {
			return err
		}
		if _, err := s.ranking.RecomputeMonthly(ctx); err != nil {
			return err
		}
		team.MemberCount++
		joined = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		s.cache.InvalidateTeam(ctx, teamID)
		s.logger.Info("User joined team",
			zap.Int64("team_id", teamID),
			zap.Int64("user_id", actor.ID))
	}
	return team, nil
}

// Leave removes actor from the team. The leader has to delete the team instead.
func (s *teamService) Leave(ctx context.Context, actor *domain.User, teamID int64) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return domain.ErrTeamNotFound
		}
		if team.LeaderID != nil && *team.LeaderID == actor.ID {
			return domain.ErrLeaderCannotLeave
		}

		removed, err := s.teams.RemoveMember(ctx, teamID, actor.ID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotAMember
		}

		_, err = s.ranking.RecomputeMonthly(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateTeam(ctx, teamID)
	s.logger.Info("User left team",
		zap.Int64("team_id", teamID),
		zap.Int64("user_id", actor.ID))
	return nil
}

// Delete removes a team. Allowed for its leader and for staff.
func (s *teamService) Delete(ctx context.Context, actor *domain.User, teamID int64) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return domain.ErrTeamNotFound
		}

		isLeader := team.LeaderID != nil && *team.LeaderID == actor.ID
		if !isLeader && !actor.CanModerate() {
			return domain.ErrUnauthorized
		}

		if _, err := s.teams.Delete(ctx, teamID); err != nil {
			return err
		}
		_, err = s.ranking.RecomputeMonthly(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateTeam(ctx, teamID)
	s.logger.Info("Team deleted",
		zap.Int64("team_id", teamID),
		zap.Int64("actor_id", actor.ID))
	return nil
}

func (s *teamService) List(ctx context.Context) ([]domain.Team, error) {
	return s.teams.List(ctx)
}

// Get returns a team with its members
func (s *teamService) Get(ctx context.Context, teamID int64) (*domain.TeamDetail, error) {
	return s.cache.GetTeamWithCache(ctx, teamID, func(ctx context.Context) (*domain.TeamDetail, error) {
		return s.detail(ctx, teamID)
	})
}

// MyTeam returns the actor's team, or nil when they are not on one
func (s *teamService) MyTeam(ctx context.Context, actor *domain.User) (*domain.TeamDetail, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	team, err := s.teams.TeamOfUser(ctx, actor.ID)
	if err != nil || team == nil {
		return nil, err
	}
	return s.Get(ctx, team.ID)
}

func (s *teamService) detail(ctx context.Context, teamID int64) (*domain.TeamDetail, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, domain.ErrTeamNotFound
	}

	members, err := s.teams.Members(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &domain.TeamDetail{Team: *team, Members: members}, nil
}
