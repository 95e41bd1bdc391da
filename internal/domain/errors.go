package domain

import "errors"

var (
	ErrAlreadyAwarded       = errors.New("points already awarded for this activity")
	ErrActivityNotFound     = errors.New("activity not found")
	ErrActivityNotApproved  = errors.New("activity is awaiting approval")
	ErrAlreadyOnTeam        = errors.New("user already belongs to a team")
	ErrNotAMember           = errors.New("user is not a member of this team")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrUnauthorized         = errors.New("operation not permitted for this user")
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrLeaderCannotLeave    = errors.New("team leader cannot leave the team")
	ErrItemNotFound         = errors.New("item not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrLeaderboardNotFound  = errors.New("leaderboard not found")
	ErrInvalidDateFilter    = errors.New("invalid date filter")
	ErrInvalidMode          = errors.New("invalid leaderboard mode")
	ErrAwardInProgress      = errors.New("award for this activity is already being processed")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidCategory      = errors.New("category name must not be empty")
)
