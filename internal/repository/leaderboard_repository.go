package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaderboardRepository struct {
	db *database.PostgresDB
}

// NewLeaderboardRepository creates a new leaderboard category repository
func NewLeaderboardRepository(db *database.PostgresDB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

// Upsert returns the id of the category with name, creating it if needed.
// The no-op DO UPDATE makes RETURNING yield the existing row too.
func (r *leaderboardRepository) Upsert(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO leaderboards (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := r.db.Conn(ctx).QueryRow(ctx, query, strings.TrimSpace(name)).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert leaderboard: %w", err)
	}
	return id, nil
}

func (r *leaderboardRepository) List(ctx context.Context) ([]domain.Leaderboard, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT id, name, logo, color FROM leaderboards ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboards: %w", err)
	}
	defer rows.Close()

	var out []domain.Leaderboard
	for rows.Next() {
		var lb domain.Leaderboard
		if err := rows.Scan(&lb.ID, &lb.Name, &lb.Logo, &lb.Color); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard: %w", err)
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

func (r *leaderboardRepository) GetByID(ctx context.Context, id int64) (*domain.Leaderboard, error) {
	var lb domain.Leaderboard
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT id, name, logo, color FROM leaderboards WHERE id = $1`, id).
		Scan(&lb.ID, &lb.Name, &lb.Logo, &lb.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return &lb, nil
}

func (r *leaderboardRepository) Update(ctx context.Context, lb *domain.Leaderboard) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx,
		`UPDATE leaderboards SET name = $2, logo = $3, color = $4 WHERE id = $1`,
		lb.ID, lb.Name, lb.Logo, lb.Color)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return false, fmt.Errorf("leaderboard name %q already taken: %w", lb.Name, err)
		}
		return false, fmt.Errorf("failed to update leaderboard: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
