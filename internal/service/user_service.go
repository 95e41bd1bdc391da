package service

import (
	"context"
	"strings"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type userService struct {
	users          repository.UserRepository
	teams          repository.TeamRepository
	participations repository.ParticipationRepository
	logger         *zap.Logger
}

// NewUserService creates the user profile service
func NewUserService(repos *repository.Repositories, logger *zap.Logger) UserService {
	return &userService{
		users:          repos.User,
		teams:          repos.Team,
		participations: repos.Participation,
		logger:         logger,
	}
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// Profile returns the user with their team and participation count
func (s *userService) Profile(ctx context.Context, id int64) (*domain.UserProfile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	team, err := s.teams.TeamOfUser(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.participations.CountByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.UserProfile{User: *u, Team: team, ParticipationCount: count}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor *domain.User, req domain.UpdateProfileRequest) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	u, err := s.users.UpdateProfile(ctx, actor.ID, req)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	s.logger.Debug("Profile updated", zap.Int64("user_id", actor.ID))
	return u, nil
}

// History returns the user's participations, newest first
func (s *userService) History(ctx context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.participations.History(ctx, userID)
}
