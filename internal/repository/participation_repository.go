package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

type participationRepository struct {
	db *database.PostgresDB
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *database.PostgresDB) ParticipationRepository {
	return &participationRepository{db: db}
}

// Insert records a participation. The (user_id, activity_id) unique constraint makes a
// concurrent duplicate insert a no-op, reported as inserted=false.
func (r *participationRepository) Insert(ctx context.Context, userID, activityID int64, at time.Time) (*domain.Participation, bool, error) {
	query := `
		INSERT INTO participations (user_id, activity_id, date_participated)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, activity_id) DO NOTHING
		RETURNING id, user_id, activity_id, date_participated`

	var p domain.Participation
	err := r.db.Conn(ctx).QueryRow(ctx, query, userID, activityID, at).
		Scan(&p.ID, &p.UserID, &p.ActivityID, &p.DateParticipated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		if database.IsForeignKeyViolation(err, "participations_user_id_fkey") {
			return nil, false, domain.ErrUserNotFound
		}
		if database.IsForeignKeyViolation(err, "") {
			return nil, false, domain.ErrActivityNotFound
		}
		return nil, false, fmt.Errorf("failed to insert participation: %w", err)
	}
	return &p, true, nil
}

func (r *participationRepository) Exists(ctx context.Context, userID, activityID int64) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM participations WHERE user_id = $1 AND activity_id = $2)`,
		userID, activityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participation: %w", err)
	}
	return exists, nil
}

// ListByActivity returns the participations of an activity. Rows are locked when
// called inside a transaction so a concurrent award cannot slip past a reversal.
func (r *participationRepository) ListByActivity(ctx context.Context, activityID int64) ([]domain.Participation, error) {
	query := `
		SELECT id, user_id, activity_id, date_participated
		FROM participations
		WHERE activity_id = $1
		ORDER BY id
		FOR UPDATE`

	rows, err := r.db.Conn(ctx).Query(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	var out []domain.Participation
	for rows.Next() {
		var p domain.Participation
		if err := rows.Scan(&p.ID, &p.UserID, &p.ActivityID, &p.DateParticipated); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *participationRepository) DeleteByActivity(ctx context.Context, activityID int64) (int64, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM participations WHERE activity_id = $1`, activityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete participations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *participationRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM participations WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count participations: %w", err)
	}
	return n, nil
}

// History returns the user's participations, newest first
func (r *participationRepository) History(ctx context.Context, userID int64) ([]domain.ParticipationHistoryEntry, error) {
	query := `
		SELECT a.id, a.title, a.points, p.date_participated
		FROM participations p
		JOIN activities a ON a.id = p.activity_id
		WHERE p.user_id = $1
		ORDER BY p.date_participated DESC, p.id DESC`

	rows, err := r.db.Conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participation history: %w", err)
	}
	defer rows.Close()

	var out []domain.ParticipationHistoryEntry
	for rows.Next() {
		var e domain.ParticipationHistoryEntry
		if err := rows.Scan(&e.ActivityID, &e.Title, &e.Points, &e.DateParticipated); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *participationRepository) SumByUser(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error) {
	query, args := buildSumQuery("p.user_id", "", filter)
	return r.sum(ctx, query, args)
}

func (r *participationRepository) SumByTeam(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.PointsTotal, error) {
	query, args := buildSumQuery("tm.team_id", "JOIN team_members tm ON tm.user_id = p.user_id", filter)
	return r.sum(ctx, query, args)
}

func (r *participationRepository) sum(ctx context.Context, query string, args []any) ([]domain.PointsTotal, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum points: %w", err)
	}
	defer rows.Close()

	var out []domain.PointsTotal
	for rows.Next() {
		var t domain.PointsTotal
		if err := rows.Scan(&t.ID, &t.Points); err != nil {
			return nil, fmt.Errorf("failed to scan points total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// buildSumQuery aggregates activity points grouped by groupCol. The category filter is an
// EXISTS test so an activity tagged with several categories is still counted once.
func buildSumQuery(groupCol, join string, filter domain.LeaderboardFilter) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 2)

	fmt.Fprintf(&b, "SELECT %s, COALESCE(SUM(a.points), 0)::int\n", groupCol)
	b.WriteString("FROM participations p\nJOIN activities a ON a.id = p.activity_id\n")
	if join != "" {
		b.WriteString(join + "\n")
	}
	b.WriteString("WHERE TRUE\n")

	if filter.Since != nil {
		args = append(args, *filter.Since)
		fmt.Fprintf(&b, "AND p.date_participated >= $%d\n", len(args))
	}
	if filter.LeaderboardID != nil {
		args = append(args, *filter.LeaderboardID)
		fmt.Fprintf(&b, "AND EXISTS (SELECT 1 FROM activity_leaderboards al WHERE al.activity_id = a.id AND al.leaderboard_id = $%d)\n", len(args))
	}

	fmt.Fprintf(&b, "GROUP BY %s", groupCol)
	return b.String(), args
}
