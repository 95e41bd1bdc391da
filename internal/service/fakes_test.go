package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"engage/internal/domain"
	"engage/internal/repository"
	"engage/pkg/logger"
	"engage/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for the PostgreSQL repositories. Top-level transactions
// are serialized and roll back to a snapshot on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState

	failAddPointsFor map[int64]bool
	rollbacks        int
}

type memState struct {
	nextID         int64
	users          map[int64]domain.User
	activities     map[int64]domain.Activity
	links          map[int64][]int64
	interests      map[[2]int64]bool
	participations []domain.Participation
	leaderboards   map[int64]domain.Leaderboard
	teams          map[int64]domain.Team
	members        map[int64]int64 // user id -> team id
	notifications  map[int64]domain.Notification
	items          map[int64]domain.Item
}

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			users:         map[int64]domain.User{},
			activities:    map[int64]domain.Activity{},
			links:         map[int64][]int64{},
			interests:     map[[2]int64]bool{},
			leaderboards:  map[int64]domain.Leaderboard{},
			teams:         map[int64]domain.Team{},
			members:       map[int64]int64{},
			notifications: map[int64]domain.Notification{},
			items:         map[int64]domain.Item{},
		},
		failAddPointsFor: map[int64]bool{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s memState) clone() memState {
	c := s
	c.users = cloneMap(s.users)
	c.activities = cloneMap(s.activities)
	c.links = make(map[int64][]int64, len(s.links))
	for k, v := range s.links {
		c.links[k] = append([]int64(nil), v...)
	}
	c.interests = cloneMap(s.interests)
	c.participations = append([]domain.Participation(nil), s.participations...)
	c.leaderboards = cloneMap(s.leaderboards)
	c.teams = cloneMap(s.teams)
	c.members = cloneMap(s.members)
	c.notifications = cloneMap(s.notifications)
	c.items = cloneMap(s.items)
	return c
}

func (m *memStore) id() int64 {
	m.st.nextID++
	return m.st.nextID
}

type memTxKey struct{}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Tx:            m,
		User:          memUsers{m},
		Activity:      memActivities{m},
		Participation: memParticipations{m},
		Leaderboard:   memLeaderboards{m},
		Team:          memTeams{m},
		Notification:  memNotifications{m},
		Item:          memItems{m},
	}
}

// seeding helpers

func (m *memStore) addUser(first, last string, staff bool) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := domain.User{ID: m.id(), FirstName: first, LastName: last, IsStaff: staff,
		Email: fmt.Sprintf("%s@example.com", first)}
	m.st.users[u.ID] = u
	return u
}

func (m *memStore) user(id int64) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.users[id]
}

func (m *memStore) setBalance(id int64, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.st.users[id]
	u.Balance = balance
	m.st.users[id] = u
}

func (m *memStore) addActivity(title string, points int, eventDate time.Time, categories ...int64) domain.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := domain.Activity{ID: m.id(), Title: title, Points: points, EventDate: eventDate, IsApproved: true, IsActive: true}
	m.st.activities[a.ID] = a
	m.st.links[a.ID] = append([]int64(nil), categories...)
	a.Leaderboards = m.st.links[a.ID]
	return a
}

func (m *memStore) setActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.st.activities[id]
	a.IsActive = active
	m.st.activities[id] = a
}

func (m *memStore) addCategory(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.st.leaderboards[id] = domain.Leaderboard{ID: id, Name: name}
	return id
}

func (m *memStore) addTeam(name string, leaderID int64, memberIDs ...int64) domain.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.Team{ID: m.id(), Name: name, LeaderID: &leaderID}
	m.st.teams[t.ID] = t
	m.st.members[leaderID] = t.ID
	for _, uid := range memberIDs {
		m.st.members[uid] = t.ID
	}
	return t
}

// addParticipation inserts a row directly, without touching balances
func (m *memStore) addParticipation(userID, activityID int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.participations = append(m.st.participations,
		domain.Participation{ID: m.id(), UserID: userID, ActivityID: activityID, DateParticipated: at})
}

func (m *memStore) participationCount(userID, activityID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.st.participations {
		if (userID == 0 || p.UserID == userID) && (activityID == 0 || p.ActivityID == activityID) {
			n++
		}
	}
	return n
}

func (m *memStore) teamRank(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.teams[id].MonthlyRank
}

// users

type memUsers struct{ m *memStore }

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) List(_ context.Context) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.User, 0, len(r.m.st.users))
	for _, u := range r.m.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) UpdateProfile(_ context.Context, id int64, req domain.UpdateProfileRequest) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return nil, nil
	}
	u.FirstName, u.LastName = req.FirstName, req.LastName
	u.Description, u.Position, u.ProfilePicture = req.Description, req.Position, req.ProfilePicture
	r.m.st.users[id] = u
	return &u, nil
}

func (r memUsers) AddPoints(_ context.Context, id int64, delta int) (int, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failAddPointsFor[id] {
		return 0, 0, errors.New("injected failure")
	}
	u, ok := r.m.st.users[id]
	if !ok {
		return 0, 0, domain.ErrUserNotFound
	}
	u.Balance += delta
	u.LifetimePoints += delta
	r.m.st.users[id] = u
	return u.Balance, u.LifetimePoints, nil
}

func (r memUsers) Debit(_ context.Context, id int64, amount int) (int, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok || u.Balance < amount {
		return 0, false, nil
	}
	u.Balance -= amount
	r.m.st.users[id] = u
	return u.Balance, true, nil
}

// activities

type memActivities struct{ m *memStore }

func (r memActivities) withLinks(a domain.Activity) domain.Activity {
	ids := append([]int64{}, r.m.st.links[a.ID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	a.Leaderboards = ids
	return a
}

func (r memActivities) Create(_ context.Context, a *domain.Activity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a.ID = r.m.id()
	a.CreatedAt = time.Now()
	stored := *a
	stored.Leaderboards = nil
	r.m.st.activities[a.ID] = stored
	return nil
}

func (r memActivities) GetByID(_ context.Context, id int64) (*domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.st.activities[id]
	if !ok {
		return nil, nil
	}
	a = r.withLinks(a)
	return &a, nil
}

func (r memActivities) Update(_ context.Context, a *domain.Activity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.st.activities[a.ID]
	if !ok {
		return domain.ErrActivityNotFound
	}
	updated := *a
	updated.IsApproved = existing.IsApproved
	updated.CreatorID = existing.CreatorID
	updated.Leaderboards = nil
	r.m.st.activities[a.ID] = updated
	return nil
}

func (r memActivities) Delete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.activities[id]; !ok {
		return false, nil
	}
	delete(r.m.st.activities, id)
	delete(r.m.st.links, id)
	kept := r.m.st.participations[:0]
	for _, p := range r.m.st.participations {
		if p.ActivityID != id {
			kept = append(kept, p)
		}
	}
	r.m.st.participations = kept
	return true, nil
}

func (r memActivities) SetApproved(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.st.activities[id]
	if !ok {
		return false, nil
	}
	a.IsApproved = true
	r.m.st.activities[id] = a
	return true, nil
}

func (r memActivities) list(keep func(domain.Activity) bool) []domain.Activity {
	var out []domain.Activity
	for _, a := range r.m.st.activities {
		if keep(a) {
			out = append(out, r.withLinks(a))
		}
	}
	return out
}

func (r memActivities) ListApproved(_ context.Context, limit, offset int) ([]domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.list(func(a domain.Activity) bool { return a.IsApproved })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.After(out[j].EventDate)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memActivities) ListPending(_ context.Context) ([]domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.list(func(a domain.Activity) bool { return !a.IsApproved })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memActivities) DeactivateExpired(_ context.Context, today time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, a := range r.m.st.activities {
		if a.IsActive && !a.ActiveAt(today) {
			a.IsActive = false
			r.m.st.activities[id] = a
			n++
		}
	}
	return n, nil
}

func (r memActivities) SetLeaderboards(_ context.Context, activityID int64, ids []int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.m.st.leaderboards[id]; !ok {
			return domain.ErrLeaderboardNotFound
		}
	}
	r.m.st.links[activityID] = append([]int64(nil), ids...)
	return nil
}

func (r memActivities) ToggleInterest(_ context.Context, userID, activityID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := [2]int64{userID, activityID}
	if r.m.st.interests[key] {
		delete(r.m.st.interests, key)
		return false, nil
	}
	r.m.st.interests[key] = true
	return true, nil
}

func (r memActivities) IsInterested(_ context.Context, userID, activityID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.st.interests[[2]int64{userID, activityID}], nil
}

// participations

type memParticipations struct{ m *memStore }

func (r memParticipations) Insert(_ context.Context, userID, activityID int64, at time.Time) (*domain.Participation, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.activities[activityID]; !ok {
		return nil, false, domain.ErrActivityNotFound
	}
	if _, ok := r.m.st.users[userID]; !ok {
		return nil, false, domain.ErrUserNotFound
	}
	for _, p := range r.m.st.participations {
		if p.UserID == userID && p.ActivityID == activityID {
			return nil, false, nil
		}
	}
	p := domain.Participation{ID: r.m.id(), UserID: userID, ActivityID: activityID, DateParticipated: at}
	r.m.st.participations = append(r.m.st.participations, p)
	return &p, true, nil
}

func (r memParticipations) Exists(_ context.Context, userID, activityID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.st.participations {
		if p.UserID == userID && p.ActivityID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (r memParticipations) ListByActivity(_ context.Context, activityID int64) ([]domain.Participation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Participation
	for _, p := range r.m.st.participations {
		if p.ActivityID == activityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memParticipations) DeleteByActivity(_ context.Context, activityID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	kept := make([]domain.Participation, 0, len(r.m.st.participations))
	for _, p := range r.m.st.participations {
		if p.ActivityID == activityID {
			n++
			continue
		}
		kept = append(kept, p)
	}
	r.m.st.participations = kept
	return n, nil
}

func (r memParticipations) CountByUser(_ context.Context, userID int64) (int, error) {
	return r.m.participationCount(userID, 0), nil
}

func (r memParticipations) History(_ context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.ParticipationHistoryEntry
	for _, p := range r.m.st.participations {
		if p.UserID != userID {
			continue
		}
		a := r.m.st.activities[p.ActivityID]
		out = append(out, domain.ParticipationHistoryEntry{
			ActivityID: a.ID, Title: a.Title, Points: a.Points, DateParticipated: p.DateParticipated,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateParticipated.After(out[j].DateParticipated) })
	return out, nil
}

func (r memParticipations) sum(filter domain.LeaderboardFilter, key func(p domain.Participation) (int64, bool)) []domain.PointsTotal {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	totals := map[int64]int{}
	for _, p := range r.m.st.participations {
		if filter.Since != nil && p.DateParticipated.Before(*filter.Since) {
			continue
		}
		if filter.LeaderboardID != nil {
			linked := false
			for _, id := range r.m.st.links[p.ActivityID] {
				if id == *filter.LeaderboardID {
					linked = true
				}
			}
			if !linked {
				continue
			}
		}
		k, ok := key(p)
		if !ok {
			continue
		}
		totals[k] += r.m.st.activities[p.ActivityID].Points
	}
	out := make([]domain.PointsTotal, 0, len(totals))
	for id, pts := range totals {
		out = append(out, domain.PointsTotal{ID: id, Points: pts})
	}
	return out
}

func (r memParticipations) SumByUser(_ context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error) {
	return r.sum(filter, func(p domain.Participation) (int64, bool) { return p.UserID, true }), nil
}

func (r memParticipations) SumByTeam(_ context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error) {
	return r.sum(filter, func(p domain.Participation) (int64, bool) {
		teamID, ok := r.m.st.members[p.UserID]
		return teamID, ok
	}), nil
}

// leaderboards

type memLeaderboards struct{ m *memStore }

func (r memLeaderboards) Upsert(_ context.Context, name string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, lb := range r.m.st.leaderboards {
		if lb.Name == name {
			return id, nil
		}
	}
	id := r.m.id()
	r.m.st.leaderboards[id] = domain.Leaderboard{ID: id, Name: name}
	return id, nil
}

func (r memLeaderboards) List(_ context.Context) ([]domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Leaderboard, 0, len(r.m.st.leaderboards))
	for _, lb := range r.m.st.leaderboards {
		out = append(out, lb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memLeaderboards) GetByID(_ context.Context, id int64) (*domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	lb, ok := r.m.st.leaderboards[id]
	if !ok {
		return nil, nil
	}
	return &lb, nil
}

func (r memLeaderboards) Update(_ context.Context, lb *domain.Leaderboard) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.leaderboards[lb.ID]; !ok {
		return false, nil
	}
	r.m.st.leaderboards[lb.ID] = *lb
	return true, nil
}

// teams

type memTeams struct{ m *memStore }

func (r memTeams) withCount(t domain.Team) domain.Team {
	t.MemberCount = 0
	for _, teamID := range r.m.st.members {
		if teamID == t.ID {
			t.MemberCount++
		}
	}
	return t
}

func (r memTeams) Create(_ context.Context, team *domain.Team) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	team.ID = r.m.id()
	team.CreatedAt = time.Now()
	r.m.st.teams[team.ID] = *team
	return nil
}

func (r memTeams) GetByID(_ context.Context, id int64) (*domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.st.teams[id]
	if !ok {
		return nil, nil
	}
	t = r.withCount(t)
	return &t, nil
}

func (r memTeams) List(_ context.Context) ([]domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Team, 0, len(r.m.st.teams))
	for _, t := range r.m.st.teams {
		out = append(out, r.withCount(t))
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].MonthlyRank, out[j].MonthlyRank
		if (ri == 0) != (rj == 0) {
			return rj == 0
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memTeams) Members(_ context.Context, teamID int64) ([]domain.TeamMember, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t := r.m.st.teams[teamID]
	var out []domain.TeamMember
	for uid, tid := range r.m.st.members {
		if tid != teamID {
			continue
		}
		u := r.m.st.users[uid]
		out = append(out, domain.TeamMember{
			UserID: uid, FirstName: u.FirstName, LastName: u.LastName,
			LifetimePoints: u.LifetimePoints, IsLeader: t.LeaderID != nil && *t.LeaderID == uid,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r memTeams) TeamOfUser(_ context.Context, userID int64) (*domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	teamID, ok := r.m.st.members[userID]
	if !ok {
		return nil, nil
	}
	t := r.withCount(r.m.st.teams[teamID])
	return &t, nil
}

func (r memTeams) AddMember(_ context.Context, teamID, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.members[userID]; ok {
		return domain.ErrAlreadyOnTeam
	}
	if _, ok := r.m.st.teams[teamID]; !ok {
		return domain.ErrTeamNotFound
	}
	r.m.st.members[userID] = teamID
	return nil
}

func (r memTeams) RemoveMember(_ context.Context, teamID, userID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.st.members[userID] != teamID {
		return false, nil
	}
	delete(r.m.st.members, userID)
	return true, nil
}

func (r memTeams) Delete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.teams[id]; !ok {
		return false, nil
	}
	delete(r.m.st.teams, id)
	for uid, tid := range r.m.st.members {
		if tid == id {
			delete(r.m.st.members, uid)
		}
	}
	return true, nil
}

func (r memTeams) UpdateRanks(_ context.Context, ranks map[int64]int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, rank := range ranks {
		t, ok := r.m.st.teams[id]
		if !ok {
			continue
		}
		t.MonthlyRank = rank
		r.m.st.teams[id] = t
	}
	return nil
}

// notifications

type memNotifications struct{ m *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n.ID = r.m.id()
	n.CreatedAt = time.Now()
	r.m.st.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.m.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memNotifications) CountUnread(_ context.Context, userID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := 0
	for _, n := range r.m.st.notifications {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.st.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	r.m.st.notifications[id] = n
	return true, nil
}

func (r memNotifications) Delete(_ context.Context, userID, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.st.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(r.m.st.notifications, id)
	return true, nil
}

// items

type memItems struct{ m *memStore }

func (r memItems) List(_ context.Context) ([]domain.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Item, 0, len(r.m.st.items))
	for _, it := range r.m.st.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memItems) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.st.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r memItems) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[int64]domain.Item{}
	for _, id := range ids {
		if it, ok := r.m.st.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (r memItems) Create(_ context.Context, item *domain.Item) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	item.ID = r.m.id()
	item.CreatedAt = time.Now()
	r.m.st.items[item.ID] = *item
	return nil
}

// test environment

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	db    *memStore
	clock *fakeClock
	cache *CacheService
	mr    *miniredis.Miniredis

	ranking      RankingService
	award        AwardService
	leaderboard  LeaderboardService
	team         TeamService
	activity     ActivityService
	notification NotificationService
	shop         StoreService
	user         UserService
}

// newTestEnv wires every service over a memStore. withRedis backs the cache with miniredis.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    newMemStore(),
		clock: &fakeClock{t: time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)},
	}

	var rc *redis.Client
	if withRedis {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		env.mr = mr

		rc, err = redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = rc.Close()
			mr.Close()
		})
	}

	log := zap.NewNop()
	repos := env.db.repos()
	now := Clock(env.clock.Now)

	env.cache = NewCacheService(rc, log, time.Minute)
	env.ranking = NewRankingService(repos.Team, repos.Participation, log, now)
	env.award = NewAwardService(repos, env.ranking, env.cache, log, now)
	env.leaderboard = NewLeaderboardService(repos, env.cache, log, now)
	env.team = NewTeamService(repos, env.ranking, env.cache, log)
	env.notification = NewNotificationService(repos.Notification, env.cache, log)
	env.activity = NewActivityService(repos, env.leaderboard, env.award, env.ranking, env.notification, env.cache, log, now)
	env.shop = NewStoreService(repos, env.notification, log)
	env.user = NewUserService(repos, log)
	return env
}

func nopLogger() *logger.Logger {
	return logger.NewNop()
}

func ptr[T any](v T) *T {
	return &v
}
