package service

import (
	"context"
	"time"

	"engage/internal/domain"
)

// Clock returns the current time in the deployment timezone.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// AuthService defines the interface for session token verification
type AuthService interface {
	// ValidateToken verifies a bearer token and returns its claims
	ValidateToken(ctx context.Context, token string) (*domain.AuthClaims, error)
}

// AwardService defines the interface for crediting and reversing activity points
type AwardService interface {
	// Award credits the activity's points to userID exactly once
	Award(ctx context.Context, actor *domain.User, userID, activityID int64) (*domain.AwardResult, error)

	// ReverseActivity takes back the activity's points from every participant
	// and clears its participations. It returns the number of reversed awards.
	ReverseActivity(ctx context.Context, activityID int64) (int, error)
}

// RankingService defines the interface for the monthly team rank snapshot
type RankingService interface {
	// RecomputeMonthly ranks every team on points earned since the start of the month
	RecomputeMonthly(ctx context.Context) (map[int64]int, error)
}

// LeaderboardService defines the interface for standings and leaderboard categories
type LeaderboardService interface {
	Query(ctx context.Context, q domain.LeaderboardQuery) (*domain.Standings, error)
	ListCategories(ctx context.Context) ([]domain.Leaderboard, error)
	GetCategory(ctx context.Context, id int64) (*domain.Leaderboard, error)
	UpsertCategory(ctx context.Context, name string) (int64, error)
	UpdateCategory(ctx context.Context, actor *domain.User, id int64, input domain.LeaderboardInput) (*domain.Leaderboard, error)
}

// TeamService defines the interface for team membership
type TeamService interface {
	Create(ctx context.Context, actor *domain.User, req domain.CreateTeamRequest) (*domain.Team, error)
	Join(ctx context.Context, actor *domain.User, teamID int64) (*domain.Team, error)
	Leave(ctx context.Context, actor *domain.User, teamID int64) error
	Delete(ctx context.Context, actor *domain.User, teamID int64) error
	List(ctx context.Context) ([]domain.Team, error)
	Get(ctx context.Context, teamID int64) (*domain.TeamDetail, error)

	// MyTeam returns nil when the user is not on a team
	MyTeam(ctx context.Context, actor *domain.User) (*domain.TeamDetail, error)
}

// ActivityService defines the interface for the activity lifecycle
type ActivityService interface {
	Create(ctx context.Context, actor *domain.User, input domain.ActivityInput) (*domain.Activity, error)
	Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Activity, error)
	Update(ctx context.Context, actor *domain.User, id int64, input domain.ActivityInput) (*domain.Activity, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Get(ctx context.Context, id int64) (*domain.Activity, error)
	List(ctx context.Context, offset int) (*domain.ActivityPage, error)
	ListPending(ctx context.Context, actor *domain.User) ([]domain.Activity, error)
	ToggleInterest(ctx context.Context, actor *domain.User, id int64) (bool, error)
	IsInterested(ctx context.Context, actor *domain.User, id int64) (bool, error)

	// DeactivateExpired marks activities whose last day has passed as inactive
	DeactivateExpired(ctx context.Context) (int64, error)
}

// NotificationService defines the interface for user notifications
type NotificationService interface {
	// Notify stores a notification. Failures are logged, never returned.
	Notify(ctx context.Context, userID int64, title, message string)
	List(ctx context.Context, actor *domain.User) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, actor *domain.User) (int, error)
	MarkRead(ctx context.Context, actor *domain.User, id int64) error
	Dismiss(ctx context.Context, actor *domain.User, id int64) error
}

// StoreService defines the interface for the points store
type StoreService interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	CreateItem(ctx context.Context, actor *domain.User, input domain.ItemInput) (*domain.Item, error)
	Checkout(ctx context.Context, actor *domain.User, req domain.CheckoutRequest) (*domain.CheckoutResult, error)
}

// UserService defines the interface for user profiles
type UserService interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Profile(ctx context.Context, id int64) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, actor *domain.User, req domain.UpdateProfileRequest) (*domain.User, error)
	History(ctx context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error)
}

// LifecycleService defines the interface for the periodic maintenance worker
type LifecycleService interface {
	// Start begins the periodic ticks
	Start(ctx context.Context) error

	// Stop waits for the running tick to finish
	Stop(ctx context.Context) error

	// RunOnce performs one maintenance pass
	RunOnce(ctx context.Context) error
}

// Services aggregates all service interfaces
type Services struct {
	Auth         AuthService
	Award        AwardService
	Ranking      RankingService
	Leaderboard  LeaderboardService
	Team         TeamService
	Activity     ActivityService
	Notification NotificationService
	Store        StoreService
	User         UserService
	Lifecycle    LifecycleService
	Cache        *CacheService
}
