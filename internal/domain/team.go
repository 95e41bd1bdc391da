package domain

import "time"

// Team groups users. MonthlyRank is a cached snapshot written by the ranking recompute.
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	LeaderID    *int64    `json:"leader_id,omitempty"`
	MonthlyRank int       `json:"monthly_rank"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamMember is a member row as listed on the team detail page.
type TeamMember struct {
	UserID         int64  `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	LifetimePoints int    `json:"lifetime_points"`
	IsLeader       bool   `json:"is_leader"`
}

// TeamDetail is a team with its members.
type TeamDetail struct {
	Team
	Members []TeamMember `json:"members"`
}

// CreateTeamRequest is the body for team creation.
type CreateTeamRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Image string `json:"image" validate:"omitempty,url,max=500"`
}
