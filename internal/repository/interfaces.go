package repository

import (
	"context"
	"time"

	"engage/internal/domain"
	"engage/pkg/database"
)

// Lookups return (nil, nil) when the row does not exist.

// Transactor runs fn in one database transaction. Repository calls made with the
// ctx handed to fn join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns every user ordered by id
	List(ctx context.Context) ([]domain.User, error)

	// UpdateProfile writes the editable profile fields
	UpdateProfile(ctx context.Context, id int64, req domain.UpdateProfileRequest) (*domain.User, error)

	// AddPoints adds delta to both balance and lifetime points and returns the new values
	AddPoints(ctx context.Context, id int64, delta int) (balance, lifetime int, err error)

	// Debit subtracts amount from balance only when the balance covers it
	Debit(ctx context.Context, id int64, amount int) (balance int, ok bool, err error)
}

// ActivityRepository defines the interface for activity data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	GetByID(ctx context.Context, id int64) (*domain.Activity, error)
	Update(ctx context.Context, activity *domain.Activity) error
	Delete(ctx context.Context, id int64) (bool, error)
	SetApproved(ctx context.Context, id int64) (bool, error)

	// ListApproved returns approved activities, newest event first
	ListApproved(ctx context.Context, limit, offset int) ([]domain.Activity, error)
	ListPending(ctx context.Context) ([]domain.Activity, error)

	// DeactivateExpired clears is_active on activities whose last day is before today
	DeactivateExpired(ctx context.Context, today time.Time) (int64, error)

	// SetLeaderboards replaces the category links of an activity
	SetLeaderboards(ctx context.Context, activityID int64, leaderboardIDs []int64) error

	// ToggleInterest flips the bookmark and reports whether it is now set
	ToggleInterest(ctx context.Context, userID, activityID int64) (bool, error)
	IsInterested(ctx context.Context, userID, activityID int64) (bool, error)
}

// ParticipationRepository defines the interface for award records and point aggregation
type ParticipationRepository interface {
	// Insert records a participation. inserted is false when the pair already exists.
	Insert(ctx context.Context, userID, activityID int64, at time.Time) (p *domain.Participation, inserted bool, err error)
	Exists(ctx context.Context, userID, activityID int64) (bool, error)
	ListByActivity(ctx context.Context, activityID int64) ([]domain.Participation, error)
	DeleteByActivity(ctx context.Context, activityID int64) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	History(ctx context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error)

	// SumByUser totals activity points per participant. Users without matching rows are absent.
	SumByUser(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error)

	// SumByTeam totals activity points per team of the participant.
	SumByTeam(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error)
}

// LeaderboardRepository defines the interface for leaderboard categories
type LeaderboardRepository interface {
	// Upsert returns the id of the category with name, creating it if needed
	Upsert(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]domain.Leaderboard, error)
	GetByID(ctx context.Context, id int64) (*domain.Leaderboard, error)
	Update(ctx context.Context, lb *domain.Leaderboard) (bool, error)
}

// TeamRepository defines the interface for teams and their members
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Members(ctx context.Context, teamID int64) ([]domain.TeamMember, error)

	// TeamOfUser returns the team the user belongs to
	TeamOfUser(ctx context.Context, userID int64) (*domain.Team, error)

	// AddMember fails with domain.ErrAlreadyOnTeam when the user is on any team
	AddMember(ctx context.Context, teamID, userID int64) error
	RemoveMember(ctx context.Context, teamID, userID int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)

	// UpdateRanks writes monthly_rank for every team in ranks
	UpdateRanks(ctx context.Context, ranks map[int64]int) error
}

// NotificationRepository defines the interface for user notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) (bool, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

// ItemRepository defines the interface for the points store catalog
type ItemRepository interface {
	List(ctx context.Context) ([]domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Item, error)
	Create(ctx context.Context, item *domain.Item) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Tx            Transactor
	User          UserRepository
	Activity      ActivityRepository
	Participation ParticipationRepository
	Leaderboard   LeaderboardRepository
	Team          TeamRepository
	Notification  NotificationRepository
	Item          ItemRepository
}

// NewRepositories wires the pgx implementations against one pool
func NewRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Tx:            db,
		User:          NewUserRepository(db),
		Activity:      NewActivityRepository(db),
		Participation: NewParticipationRepository(db),
		Leaderboard:   NewLeaderboardRepository(db),
		Team:          NewTeamRepository(db),
		Notification:  NewNotificationRepository(db),
		Item:          NewItemRepository(db),
	}
}
