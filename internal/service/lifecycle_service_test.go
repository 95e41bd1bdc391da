package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRanking struct{ err error }

func (f failingRanking) RecomputeMonthly(context.Context) (map[int64]int, error) {
	return nil, f.err
}

func TestLifecycleService_RunOnce(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	ada := env.db.addUser("Ada", "Lovelace", false)
	bob := env.db.addUser("Bob", "Stone", false)
	red := env.db.addTeam("Red", ada.ID)
	blue := env.db.addTeam("Blue", bob.ID)

	old := env.db.addActivity("Last week", 10, env.clock.Now().AddDate(0, 0, -7))
	env.db.addParticipation(bob.ID, old.ID, env.clock.Now().AddDate(0, 0, -7))

	lifecycle := NewLifecycleService(env.activity, env.ranking, env.cache, nopLogger(), time.Hour, env.clock.Now)
	require.NoError(t, lifecycle.RunOnce(ctx))

	a, err := env.activity.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, a.IsActive)
	assert.Equal(t, 1, env.db.teamRank(blue.ID))
	assert.Equal(t, 2, env.db.teamRank(red.ID))

	last, ok := env.cache.LastLifecycleRun(ctx)
	require.True(t, ok)
	assert.Equal(t, env.clock.Now().Unix(), last.Unix())

	// A new month with no awards resets the ranks to id order.
	env.clock.Set(time.Date(2024, time.June, 1, 0, 1, 0, 0, time.UTC))
	require.NoError(t, lifecycle.RunOnce(ctx))
	assert.Equal(t, 1, env.db.teamRank(red.ID))
	assert.Equal(t, 2, env.db.teamRank(blue.ID))
}

func TestLifecycleService_RunOnceReportsErrors(t *testing.T) {
	env := newTestEnv(t, false)
	boom := errors.New("ranking unavailable")

	yesterday := env.db.addActivity("Yesterday", 5, env.clock.Now().AddDate(0, 0, -1))

	lifecycle := NewLifecycleService(env.activity, failingRanking{err: boom}, env.cache, nopLogger(), time.Hour, env.clock.Now)
	err := lifecycle.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)

	// Deactivation still happened.
	a, getErr := env.activity.Get(context.Background(), yesterday.ID)
	require.NoError(t, getErr)
	assert.False(t, a.IsActive)
}

func TestLifecycleService_StartStop(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	expired := env.db.addActivity("Expired", 5, env.clock.Now().AddDate(0, 0, -2))

	lifecycle := NewLifecycleService(env.activity, env.ranking, env.cache, nopLogger(), 10*time.Millisecond, env.clock.Now)
	require.NoError(t, lifecycle.Start(ctx))
	require.NoError(t, lifecycle.Start(ctx), "second start is a no-op")

	a, err := env.activity.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, a.IsActive, "first pass runs synchronously on start")

	// Ticks keep deactivating activities that expire later.
	later := env.db.addActivity("Later", 5, env.clock.Now())
	env.clock.Set(env.clock.Now().AddDate(0, 0, 2))
	require.Eventually(t, func() bool {
		got, err := env.activity.Get(ctx, later.ID)
		return err == nil && !got.IsActive
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, lifecycle.Stop(stopCtx))
	require.NoError(t, lifecycle.Stop(stopCtx), "second stop is a no-op")
}

func TestLifecycleService_DefaultInterval(t *testing.T) {
	env := newTestEnv(t, false)
	svc := NewLifecycleService(env.activity, env.ranking, env.cache, nopLogger(), 0, env.clock.Now).(*lifecycleService)
	assert.Equal(t, DefaultLifecycleInterval, svc.interval)
}
