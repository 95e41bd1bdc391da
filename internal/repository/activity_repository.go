package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `a.id, a.title, a.description, a.address, a.latitude, a.longitude,
	a.event_date, a.end_date, a.photo, a.points, a.is_active, a.is_approved, a.creator_id, a.created_at,
	COALESCE((SELECT array_agg(al.leaderboard_id ORDER BY al.leaderboard_id)
	          FROM activity_leaderboards al WHERE al.activity_id = a.id), '{}')`

type activityRepository struct {
	db *database.PostgresDB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.PostgresDB) ActivityRepository {
	return &activityRepository{db: db}
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	var endDate *time.Time
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Address,
		&a.Latitude,
		&a.Longitude,
		&a.EventDate,
		&endDate,
		&a.Photo,
		&a.Points,
		&a.IsActive,
		&a.IsApproved,
		&a.CreatorID,
		&a.CreatedAt,
		&a.Leaderboards,
	)
	if err != nil {
		return nil, err
	}
	if endDate != nil {
		a.EndDate = *endDate
	}
	return &a, nil
}

func collectActivities(rows pgx.Rows) ([]domain.Activity, error) {
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Create inserts an activity and fills in its id and created_at
func (r *activityRepository) Create(ctx context.Context, a *domain.Activity) error {
	query := `
		INSERT INTO activities (
			title, description, address, latitude, longitude, event_date, end_date,
			photo, points, is_active, is_approved, creator_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := r.db.Conn(ctx).QueryRow(ctx, query,
		a.Title,
		a.Description,
		a.Address,
		a.Latitude,
		a.Longitude,
		a.EventDate,
		nullableTime(a.EndDate),
		a.Photo,
		a.Points,
		a.IsActive,
		a.IsApproved,
		a.CreatorID,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity with its category ids
func (r *activityRepository) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a WHERE a.id = $1`

	a, err := scanActivity(r.db.Conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// Update writes every editable column of an activity
func (r *activityRepository) Update(ctx context.Context, a *domain.Activity) error {
	query := `
		UPDATE activities
		SET title = $2, description = $3, address = $4, latitude = $5, longitude = $6,
		    event_date = $7, end_date = $8, photo = $9, points = $10, is_active = $11
		WHERE id = $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query,
		a.ID,
		a.Title,
		a.Description,
		a.Address,
		a.Latitude,
		a.Longitude,
		a.EventDate,
		nullableTime(a.EndDate),
		a.Photo,
		a.Points,
		a.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// Delete removes an activity. Participations and category links cascade.
func (r *activityRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete activity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *activityRepository) SetApproved(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE activities SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to approve activity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListApproved returns approved activities, newest event first
func (r *activityRepository) ListApproved(ctx context.Context, limit, offset int) ([]domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities a
		WHERE a.is_approved
		ORDER BY a.event_date DESC, a.id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return collectActivities(rows)
}

func (r *activityRepository) ListPending(ctx context.Context) ([]domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities a
		WHERE NOT a.is_approved
		ORDER BY a.created_at ASC, a.id ASC`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending activities: %w", err)
	}
	return collectActivities(rows)
}

// DeactivateExpired clears is_active on activities whose last day is before today
func (r *activityRepository) DeactivateExpired(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE activities
		SET is_active = FALSE
		WHERE is_active AND COALESCE(GREATEST(end_date, event_date), event_date) < $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, today)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired activities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetLeaderboards replaces the category links of an activity
func (r *activityRepository) SetLeaderboards(ctx context.Context, activityID int64, leaderboardIDs []int64) error {
	conn := r.db.Conn(ctx)

	if _, err := conn.Exec(ctx, `DELETE FROM activity_leaderboards WHERE activity_id = $1`, activityID); err != nil {
		return fmt.Errorf("failed to clear activity leaderboards: %w", err)
	}
	if len(leaderboardIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO activity_leaderboards (activity_id, leaderboard_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`
	if _, err := conn.Exec(ctx, query, activityID, leaderboardIDs); err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return domain.ErrLeaderboardNotFound
		}
		return fmt.Errorf("failed to link activity leaderboards: %w", err)
	}
	return nil
}

// ToggleInterest flips the bookmark and reports whether it is now set
func (r *activityRepository) ToggleInterest(ctx context.Context, userID, activityID int64) (bool, error) {
	conn := r.db.Conn(ctx)

	tag, err := conn.Exec(ctx,
		`DELETE FROM activity_interests WHERE user_id = $1 AND activity_id = $2`, userID, activityID)
	if err != nil {
		return false, fmt.Errorf("failed to remove interest: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO activity_interests (user_id, activity_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, activityID)
	if err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return false, domain.ErrActivityNotFound
		}
		return false, fmt.Errorf("failed to add interest: %w", err)
	}
	return true, nil
}

func (r *activityRepository) IsInterested(ctx context.Context, userID, activityID int64) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM activity_interests WHERE user_id = $1 AND activity_id = $2)`,
		userID, activityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check interest: %w", err)
	}
	return exists, nil
}
