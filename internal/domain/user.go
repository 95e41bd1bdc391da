package domain

import "time"

// User is a platform member. Balance is spendable, LifetimePoints only grows through awards
// and shrinks only when an award is reversed.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	Description    string    `json:"description"`
	Position       string    `json:"position"`
	IsStaff        bool      `json:"is_staff"`
	IsAdmin        bool      `json:"is_admin"`
	Balance        int       `json:"balance"`
	LifetimePoints int       `json:"lifetime_points"`
	DateJoined     time.Time `json:"date_joined"`
}

// FullName returns "First Last" trimmed of empty parts.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanModerate reports whether the user may approve, edit or delete activities.
func (u *User) CanModerate() bool {
	return u != nil && (u.IsStaff || u.IsAdmin)
}

// UserProfile is the profile view returned to the user themselves.
type UserProfile struct {
	User
	Team               *Team `json:"team,omitempty"`
	ParticipationCount int   `json:"participation_count"`
}

// UpdateProfileRequest carries editable profile fields.
type UpdateProfileRequest struct {
	FirstName      string `json:"first_name" validate:"required,min=1,max=50"`
	LastName       string `json:"last_name" validate:"required,min=1,max=50"`
	Description    string `json:"description" validate:"max=2000"`
	Position       string `json:"position" validate:"max=50"`
	ProfilePicture string `json:"profile_picture" validate:"omitempty,url,max=500"`
}

// AuthClaims represents session token claims issued by the login-link collaborator.
type AuthClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
}
