package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"engage/internal/service/auth"
	"engage/pkg/logger"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|seed|token <user_id>]"

func main() {
	log, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.WithError(err).Fatal("Failed to drop tables")
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.WithError(err).Fatal("Failed to create tables")
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.WithError(err).Fatal("Failed to seed data")
		}
		fmt.Println("✅ Data seeded successfully")

	case "token":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			log.WithError(err).Fatal("Invalid user id")
		}
		token, err := issueToken(ctx, conn, userID, os.Getenv("JWT_SECRET"))
		if err != nil {
			log.WithError(err).Fatal("Failed to issue token")
		}
		fmt.Println(token)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

var tables = []string{
	"notifications",
	"items",
	"activity_interests",
	"participations",
	"activity_leaderboards",
	"activities",
	"leaderboards",
	"team_members",
	"teams",
	"users",
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	for _, table := range tables {
		query := `DROP TABLE IF EXISTS ` + table + ` CASCADE`
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", table)
	}
	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(254) NOT NULL,
			first_name VARCHAR(50) NOT NULL DEFAULT '',
			last_name VARCHAR(50) NOT NULL DEFAULT '',
			profile_picture VARCHAR(500) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			position VARCHAR(50) NOT NULL DEFAULT '',
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			balance INTEGER NOT NULL DEFAULT 0,
			lifetime_points INTEGER NOT NULL DEFAULT 0,
			date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))`,

		`CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			image VARCHAR(500) NOT NULL DEFAULT '',
			leader_id BIGINT REFERENCES users(id) ON DELETE RESTRICT,
			monthly_rank INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// One team per user
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (team_id, user_id),
			UNIQUE (user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS leaderboards (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(200) NOT NULL UNIQUE,
			logo VARCHAR(200) NOT NULL DEFAULT '',
			color VARCHAR(200) NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			address VARCHAR(200) NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			event_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			photo VARCHAR(500) NOT NULL DEFAULT '',
			points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			creator_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS activities_feed_idx ON activities (is_approved, event_date DESC)`,

		`CREATE TABLE IF NOT EXISTS activity_leaderboards (
			activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
			leaderboard_id BIGINT NOT NULL REFERENCES leaderboards(id) ON DELETE CASCADE,
			PRIMARY KEY (activity_id, leaderboard_id)
		)`,

		// The unique pair is what makes awards idempotent
		`CREATE TABLE IF NOT EXISTS participations (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
			date_participated TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, activity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS participations_activity_id_idx ON participations (activity_id)`,
		`CREATE INDEX IF NOT EXISTS participations_date_idx ON participations (date_participated)`,

		`CREATE TABLE IF NOT EXISTS activity_interests (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, activity_id)
		)`,

		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			description VARCHAR(200) NOT NULL DEFAULT '',
			image VARCHAR(500) NOT NULL DEFAULT '',
			price INTEGER NOT NULL CHECK (price >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	fmt.Printf("  Created %d tables\n", len(tables))
	return nil
}

// seedData loads a small demo community. Safe to run twice.
func seedData(ctx context.Context, conn *pgx.Conn) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range []struct {
		email, first, last string
		staff              bool
	}{
		{"admin@example.com", "Grace", "Hopper", true},
		{"ada@example.com", "Ada", "Lovelace", false},
		{"alan@example.com", "Alan", "Turing", false},
		{"katherine@example.com", "Katherine", "Johnson", false},
	} {
		batch.Queue(`
			INSERT INTO users (email, first_name, last_name, is_staff)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (lower(email)) DO NOTHING`, u.email, u.first, u.last, u.staff)
	}
	for _, name := range []string{"Environment", "Education", "Health"} {
		batch.Queue(`INSERT INTO leaderboards (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	}
	for _, item := range []struct {
		name  string
		price int
	}{
		{"Sticker pack", 10},
		{"Coffee mug", 40},
		{"Hoodie", 150},
	} {
		batch.Queue(`
			INSERT INTO items (name, price)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM items WHERE name = $1)`, item.name, item.price)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed users and catalog: %w", err)
	}

	// Teams and activities reference the users above by email
	queries := []string{
		`INSERT INTO teams (name, leader_id)
		 SELECT 'Ducks', id FROM users WHERE lower(email) = 'ada@example.com'
		 AND NOT EXISTS (SELECT 1 FROM teams WHERE name = 'Ducks')`,
		`INSERT INTO teams (name, leader_id)
		 SELECT 'Owls', id FROM users WHERE lower(email) = 'alan@example.com'
		 AND NOT EXISTS (SELECT 1 FROM teams WHERE name = 'Owls')`,
		`INSERT INTO team_members (team_id, user_id)
		 SELECT t.id, t.leader_id FROM teams t WHERE t.leader_id IS NOT NULL
		 ON CONFLICT (user_id) DO NOTHING`,
		`INSERT INTO activities (title, description, event_date, points, is_approved, creator_id)
		 SELECT 'Beach cleanup', 'Bring gloves and a water bottle.', date_trunc('day', NOW()) + INTERVAL '7 days', 50, TRUE, id
		 FROM users WHERE lower(email) = 'admin@example.com'
		 AND NOT EXISTS (SELECT 1 FROM activities WHERE title = 'Beach cleanup')`,
		`INSERT INTO activity_leaderboards (activity_id, leaderboard_id)
		 SELECT a.id, l.id FROM activities a, leaderboards l
		 WHERE a.title = 'Beach cleanup' AND l.name = 'Environment'
		 ON CONFLICT DO NOTHING`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// issueToken mints a 24h session token for local testing
func issueToken(ctx context.Context, conn *pgx.Conn, userID int64, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	var email string
	if err := conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email); err != nil {
		return "", fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return auth.IssueToken(secret, userID, email, 24*time.Hour, time.Now())
}
