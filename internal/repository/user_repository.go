package repository

import (
	"context"
	"errors"
	"fmt"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, first_name, last_name, profile_picture, description, position,
	is_staff, is_admin, balance, lifetime_points, date_joined`

type userRepository struct {
	db *database.PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.PostgresDB) UserRepository {
	return &userRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ProfilePicture,
		&u.Description,
		&u.Position,
		&u.IsStaff,
		&u.IsAdmin,
		&u.Balance,
		&u.LifetimePoints,
		&u.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.db.Conn(ctx).QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// List returns every user ordered by id
func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile writes the editable profile fields
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req domain.UpdateProfileRequest) (*domain.User, error) {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, description = $4, position = $5, profile_picture = $6
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.Conn(ctx).QueryRow(ctx, query,
		id, req.FirstName, req.LastName, req.Description, req.Position, req.ProfilePicture))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// AddPoints credits (or with a negative delta, reverses) balance and lifetime points together
func (r *userRepository) AddPoints(ctx context.Context, id int64, delta int) (int, int, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, lifetime_points = lifetime_points + $2
		WHERE id = $1
		RETURNING balance, lifetime_points`

	var balance, lifetime int
	err := r.db.Conn(ctx).QueryRow(ctx, query, id, delta).Scan(&balance, &lifetime)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to add points: %w", err)
	}
	return balance, lifetime, nil
}

// Debit subtracts amount from balance when the balance covers it. Lifetime points are untouched.
func (r *userRepository) Debit(ctx context.Context, id int64, amount int) (int, bool, error) {
	query := `
		UPDATE users
		SET balance = balance - $2
		WHERE id = $1 AND balance >= $2
		RETURNING balance`

	var balance int
	err := r.db.Conn(ctx).QueryRow(ctx, query, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit balance: %w", err)
	}
	return balance, true, nil
}
