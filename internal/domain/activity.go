package domain

import "time"

// Activity is an event that grants Points to each participant exactly once.
type Activity struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	EventDate    time.Time `json:"event_date"`
	EndDate      time.Time `json:"end_date"`
	Photo        string    `json:"photo"`
	Points       int       `json:"points"`
	IsActive     bool      `json:"is_active"`
	IsApproved   bool      `json:"is_approved"`
	CreatorID    int64     `json:"creator_id"`
	Leaderboards []int64   `json:"leaderboards"`
	CreatedAt    time.Time `json:"created_at"`
}

// lastDay is the final calendar day the activity runs.
func (a *Activity) lastDay() time.Time {
	if a.EndDate.IsZero() || a.EndDate.Before(a.EventDate) {
		return a.EventDate
	}
	return a.EndDate
}

// ActiveAt reports whether the activity's last day has not yet passed at now.
func (a *Activity) ActiveAt(now time.Time) bool {
	return !StartOfDay(a.lastDay().In(now.Location())).Before(StartOfDay(now))
}

// StartsAfter reports whether the event date lies strictly after the day containing now.
func (a *Activity) StartsAfter(now time.Time) bool {
	return StartOfDay(a.EventDate.In(now.Location())).After(StartOfDay(now))
}

// Participation records that a user was awarded an activity's points.
type Participation struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ActivityID       int64     `json:"activity_id"`
	DateParticipated time.Time `json:"date_participated"`
}

// ParticipationHistoryEntry is a participation joined with its activity, for profile history.
type ParticipationHistoryEntry struct {
	ActivityID       int64     `json:"activity_id"`
	Title            string    `json:"title"`
	Points           int       `json:"points"`
	DateParticipated time.Time `json:"date_participated"`
}

// AwardResult is returned after a successful award.
type AwardResult struct {
	Participation  Participation `json:"participation"`
	PointsAwarded  int           `json:"points_awarded"`
	Balance        int           `json:"balance"`
	LifetimePoints int           `json:"lifetime_points"`
}

// ActivityInput is the body for creating or editing an activity.
type ActivityInput struct {
	Title        string    `json:"title" validate:"required,min=2,max=200"`
	Description  string    `json:"description" validate:"required"`
	Address      string    `json:"address" validate:"max=200"`
	Latitude     float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64   `json:"longitude" validate:"gte=-180,lte=180"`
	EventDate    time.Time `json:"event_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"omitempty,gtefield=EventDate"`
	Photo        string    `json:"photo" validate:"omitempty,url,max=500"`
	Points       int       `json:"points" validate:"gte=0,lte=100000"`
	Leaderboards []string  `json:"leaderboards" validate:"dive,required,max=200"`
}

// ActivityPage is one page of the activity feed.
type ActivityPage struct {
	Activities []Activity `json:"activities"`
	NextOffset *int       `json:"next_offset,omitempty"`
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
