package domain

import (
	"fmt"
	"strings"
	"time"
)

// Leaderboard is a named category activities opt into. It only filters aggregation.
type Leaderboard struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Logo  string `json:"logo"`
	Color string `json:"color"`
}

// LeaderboardInput is the body for editing a category.
type LeaderboardInput struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Logo  string `json:"logo" validate:"max=200"`
	Color string `json:"color" validate:"max=200"`
}

// LeaderboardMode selects whether standings are per user or per team.
type LeaderboardMode string

const (
	ModeIndividual LeaderboardMode = "individual"
	ModeTeam       LeaderboardMode = "team"
)

// ParseLeaderboardMode defaults to individual when s is empty.
func ParseLeaderboardMode(s string) (LeaderboardMode, error) {
	switch LeaderboardMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeIndividual:
		return ModeIndividual, nil
	case ModeTeam:
		return ModeTeam, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// DateFilter selects the time window of a leaderboard query.
type DateFilter string

const (
	FilterThisMonth DateFilter = "this_month"
	FilterThisYear  DateFilter = "this_year"
	FilterAllTime   DateFilter = "all_time"
)

// ParseDateFilter defaults to all_time when s is empty.
func ParseDateFilter(s string) (DateFilter, error) {
	switch DateFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAllTime:
		return FilterAllTime, nil
	case FilterThisMonth:
		return FilterThisMonth, nil
	case FilterThisYear:
		return FilterThisYear, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDateFilter, s)
}

// WindowStart returns the first instant of the window containing now, or nil for all_time.
func (f DateFilter) WindowStart(now time.Time) *time.Time {
	var start time.Time
	switch f {
	case FilterThisMonth:
		start = MonthStart(now)
	case FilterThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return nil
	}
	return &start
}

// MonthStart returns midnight on the first day of now's month in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// LeaderboardFilter narrows the participations that are summed.
type LeaderboardFilter struct {
	Since         *time.Time
	LeaderboardID *int64
}

// PointsTotal is the summed points of one user or team.
type PointsTotal struct {
	ID     int64
	Points int
}

// StandingEntry is one ranked row of a leaderboard.
type StandingEntry struct {
	Rank   int    `json:"rank"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Standings is the result of a leaderboard query.
type Standings struct {
	Mode          LeaderboardMode `json:"mode"`
	DateFilter    DateFilter      `json:"date_filter"`
	LeaderboardID *int64          `json:"leaderboard_id,omitempty"`
	WindowStart   *time.Time      `json:"window_start,omitempty"`
	Entries       []StandingEntry `json:"entries"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// LeaderboardQuery is the parsed form of a leaderboard request.
type LeaderboardQuery struct {
	Mode          LeaderboardMode
	LeaderboardID *int64
	DateFilter    DateFilter
}
