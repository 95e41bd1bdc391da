package redis

import (
	"fmt"
	"time"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "local", "test":
		prefix = environment
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyStandingsGen holds the counter bumped on every points or membership change.
func (kb *KeyBuilder) KeyStandingsGen() string {
	return kb.BuildKey(KeyStandingsGen)
}

// KeyLeaderboard keys one cached standings result. The generation and the window start
// are part of the key, so entries filled before a change or for an earlier month are
// never read again.
func (kb *KeyBuilder) KeyLeaderboard(gen int64, mode string, leaderboardID *int64, filter string, windowStart *time.Time) string {
	category := "all"
	if leaderboardID != nil {
		category = fmt.Sprintf("%d", *leaderboardID)
	}
	window := "all"
	if windowStart != nil {
		window = windowStart.Format("2006-01-02")
	}
	return kb.BuildKey(fmt.Sprintf(KeyLeaderboard, gen, mode, category, filter, window))
}

func (kb *KeyBuilder) KeyLeaderboardAll() string {
	return kb.BuildKey(KeyLeaderboardAll)
}

func (kb *KeyBuilder) KeyCategories() string {
	return kb.BuildKey(KeyCategories)
}

func (kb *KeyBuilder) KeyTeamByID(gen, teamID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyTeamByID, gen, teamID))
}

func (kb *KeyBuilder) KeyTeamAll() string {
	return kb.BuildKey(KeyTeamAll)
}

func (kb *KeyBuilder) KeyAwardLock(userID, activityID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyAwardLock, userID, activityID))
}

func (kb *KeyBuilder) KeyUnreadCount(userID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyUnreadCount, userID))
}

func (kb *KeyBuilder) KeyLifecycleLastRun() string {
	return kb.BuildKey(KeyLifecycleLastRun)
}
