package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"engage/internal/domain"
	"engage/internal/middleware"
	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockActivityService struct{ mock.Mock }

func (m *mockActivityService) Create(ctx context.Context, actor *domain.User, input domain.ActivityInput) (*domain.Activity, error) {
	args := m.Called(ctx, actor, input)
	a, _ := args.Get(0).(*domain.Activity)
	return a, args.Error(1)
}

func (m *mockActivityService) Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Activity, error) {
	args := m.Called(ctx, actor, id)
	a, _ := args.Get(0).(*domain.Activity)
	return a, args.Error(1)
}

func (m *mockActivityService) Update(ctx context.Context, actor *domain.User, id int64, input domain.ActivityInput) (*domain.Activity, error) {
	args := m.Called(ctx, actor, id, input)
	a, _ := args.Get(0).(*domain.Activity)
	return a, args.Error(1)
}

func (m *mockActivityService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockActivityService) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Activity)
	return a, args.Error(1)
}

func (m *mockActivityService) List(ctx context.Context, offset int) (*domain.ActivityPage, error) {
	args := m.Called(ctx, offset)
	p, _ := args.Get(0).(*domain.ActivityPage)
	return p, args.Error(1)
}

func (m *mockActivityService) ListPending(ctx context.Context, actor *domain.User) ([]domain.Activity, error) {
	args := m.Called(ctx, actor)
	a, _ := args.Get(0).([]domain.Activity)
	return a, args.Error(1)
}

func (m *mockActivityService) ToggleInterest(ctx context.Context, actor *domain.User, id int64) (bool, error) {
	args := m.Called(ctx, actor, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockActivityService) IsInterested(ctx context.Context, actor *domain.User, id int64) (bool, error) {
	args := m.Called(ctx, actor, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockActivityService) DeactivateExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockAwardService struct{ mock.Mock }

func (m *mockAwardService) Award(ctx context.Context, actor *domain.User, userID, activityID int64) (*domain.AwardResult, error) {
	args := m.Called(ctx, actor, userID, activityID)
	r, _ := args.Get(0).(*domain.AwardResult)
	return r, args.Error(1)
}

func (m *mockAwardService) ReverseActivity(ctx context.Context, activityID int64) (int, error) {
	args := m.Called(ctx, activityID)
	return args.Int(0), args.Error(1)
}

type mockLeaderboardService struct{ mock.Mock }

func (m *mockLeaderboardService) Query(ctx context.Context, q domain.LeaderboardQuery) (*domain.Standings, error) {
	args := m.Called(ctx, q)
	s, _ := args.Get(0).(*domain.Standings)
	return s, args.Error(1)
}

func (m *mockLeaderboardService) ListCategories(ctx context.Context) ([]domain.Leaderboard, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).([]domain.Leaderboard)
	return l, args.Error(1)
}

func (m *mockLeaderboardService) GetCategory(ctx context.Context, id int64) (*domain.Leaderboard, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Leaderboard)
	return l, args.Error(1)
}

func (m *mockLeaderboardService) UpsertCategory(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLeaderboardService) UpdateCategory(ctx context.Context, actor *domain.User, id int64, input domain.LeaderboardInput) (*domain.Leaderboard, error) {
	args := m.Called(ctx, actor, id, input)
	l, _ := args.Get(0).(*domain.Leaderboard)
	return l, args.Error(1)
}

type mockTeamService struct{ mock.Mock }

func (m *mockTeamService) Create(ctx context.Context, actor *domain.User, req domain.CreateTeamRequest) (*domain.Team, error) {
	args := m.Called(ctx, actor, req)
	t, _ := args.Get(0).(*domain.Team)
	return t, args.Error(1)
}

func (m *mockTeamService) Join(ctx context.Context, actor *domain.User, teamID int64) (*domain.Team, error) {
	args := m.Called(ctx, actor, teamID)
	t, _ := args.Get(0).(*domain.Team)
	return t, args.Error(1)
}

func (m *mockTeamService) Leave(ctx context.Context, actor *domain.User, teamID int64) error {
	return m.Called(ctx, actor, teamID).Error(0)
}

func (m *mockTeamService) Delete(ctx context.Context, actor *domain.User, teamID int64) error {
	return m.Called(ctx, actor, teamID).Error(0)
}

func (m *mockTeamService) List(ctx context.Context) ([]domain.Team, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]domain.Team)
	return t, args.Error(1)
}

func (m *mockTeamService) Get(ctx context.Context, teamID int64) (*domain.TeamDetail, error) {
	args := m.Called(ctx, teamID)
	t, _ := args.Get(0).(*domain.TeamDetail)
	return t, args.Error(1)
}

func (m *mockTeamService) MyTeam(ctx context.Context, actor *domain.User) (*domain.TeamDetail, error) {
	args := m.Called(ctx, actor)
	t, _ := args.Get(0).(*domain.TeamDetail)
	return t, args.Error(1)
}

type mockNotificationService struct{ mock.Mock }

func (m *mockNotificationService) Notify(ctx context.Context, userID int64, title, message string) {
	m.Called(ctx, userID, title, message)
}

func (m *mockNotificationService) List(ctx context.Context, actor *domain.User) ([]domain.Notification, error) {
	args := m.Called(ctx, actor)
	n, _ := args.Get(0).([]domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, actor *domain.User) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, actor *domain.User, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockNotificationService) Dismiss(ctx context.Context, actor *domain.User, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

type mockStoreService struct{ mock.Mock }

func (m *mockStoreService) ListItems(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	i, _ := args.Get(0).([]domain.Item)
	return i, args.Error(1)
}

func (m *mockStoreService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*domain.Item)
	return i, args.Error(1)
}

func (m *mockStoreService) CreateItem(ctx context.Context, actor *domain.User, input domain.ItemInput) (*domain.Item, error) {
	args := m.Called(ctx, actor, input)
	i, _ := args.Get(0).(*domain.Item)
	return i, args.Error(1)
}

func (m *mockStoreService) Checkout(ctx context.Context, actor *domain.User, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, actor, req)
	r, _ := args.Get(0).(*domain.CheckoutResult)
	return r, args.Error(1)
}

type mockUserService struct{ mock.Mock }

func (m *mockUserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserService) Profile(ctx context.Context, id int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.UserProfile)
	return p, args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, actor *domain.User, req domain.UpdateProfileRequest) (*domain.User, error) {
	args := m.Called(ctx, actor, req)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserService) History(ctx context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error) {
	args := m.Called(ctx, userID)
	h, _ := args.Get(0).([]domain.ParticipationHistoryEntry)
	return h, args.Error(1)
}

var (
	member = &domain.User{ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Balance: 40}
	staff  = &domain.User{ID: 9, FirstName: "Grace", IsStaff: true}
)

// routeable is implemented by every handler that mounts under /api
type routeable interface {
	RegisterRoutes(r chi.Router, mw Middlewares)
}

// newRouter mounts h under /api with auth layers that authenticate as caller. A nil caller is anonymous.
func newRouter(h routeable, caller *domain.User) http.Handler {
	log := logger.NewNop()
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller != nil {
				r = r.WithContext(middleware.WithUser(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
	auth := func(next http.Handler) http.Handler {
		return inject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller == nil {
				middleware.WriteError(w, r, errors.NewAuthenticationError("Authorization header is required"), log)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r, Middlewares{
			Auth:         auth,
			OptionalAuth: inject,
			Staff:        middleware.RequireStaff(log),
		})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// dataOf decodes the success envelope's data into dst
func dataOf(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorBody {
	t.Helper()
	var env errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	return env.Error
}
