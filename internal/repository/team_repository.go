package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

const teamColumns = `t.id, t.name, t.image, t.leader_id, t.monthly_rank, t.created_at,
	(SELECT COUNT(*) FROM team_members m WHERE m.team_id = t.id)::int`

type teamRepository struct {
	db *database.PostgresDB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.PostgresDB) TeamRepository {
	return &teamRepository{db: db}
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.Image, &t.LeaderID, &t.MonthlyRank, &t.CreatedAt, &t.MemberCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a team. Membership of the leader is added separately with AddMember.
func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	query := `
		INSERT INTO teams (name, image, leader_id)
		VALUES ($1, $2, $3)
		RETURNING id, monthly_rank, created_at`

	err := r.db.Conn(ctx).QueryRow(ctx, query, team.Name, team.Image, team.LeaderID).
		Scan(&team.ID, &team.MonthlyRank, &team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`

	team, err := scanTeam(r.db.Conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// List returns all teams in monthly rank order. Unranked teams (rank 0) go last.
func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		ORDER BY t.monthly_rank = 0, t.monthly_rank, t.id`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

// Members returns the team's members, most lifetime points first
func (r *teamRepository) Members(ctx context.Context, teamID int64) ([]domain.TeamMember, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.lifetime_points, t.leader_id IS NOT DISTINCT FROM u.id
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		JOIN teams t ON t.id = m.team_id
		WHERE m.team_id = $1
		ORDER BY u.lifetime_points DESC, u.id`

	rows, err := r.db.Conn(ctx).Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.UserID, &m.FirstName, &m.LastName, &m.LifetimePoints, &m.IsLeader); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// TeamOfUser returns the team the user belongs to
func (r *teamRepository) TeamOfUser(ctx context.Context, userID int64) (*domain.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = $1`

	team, err := scanTeam(r.db.Conn(ctx).QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team of user: %w", err)
	}
	return team, nil
}

// AddMember relies on UNIQUE(team_members.user_id) for the one-team rule
func (r *teamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	_, err := r.db.Conn(ctx).Exec(ctx,
		`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, teamID, userID)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return domain.ErrAlreadyOnTeam
		}
		if database.IsForeignKeyViolation(err, "team_members_team_id_fkey") {
			return domain.ErrTeamNotFound
		}
		if database.IsForeignKeyViolation(err, "") {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID int64) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove team member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a team. Membership rows cascade, participations are untouched.
func (r *teamRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete team: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateRanks writes all ranks in a single round trip
func (r *teamRepository) UpdateRanks(ctx context.Context, ranks map[int64]int) error {
	if len(ranks) == 0 {
		return nil
	}

	// Fixed id order keeps concurrent recomputes from deadlocking on row locks.
	ids := make([]int64, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	batch := &pgx.Batch{}
	for _, teamID := range ids {
		batch.Queue(`UPDATE teams SET monthly_rank = $2 WHERE id = $1 AND monthly_rank <> $2`, teamID, ranks[teamID])
	}

	results := r.db.Conn(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update team rank: %w", err)
		}
	}
	return nil
}
