package container

import (
	"context"
	"errors"
	"fmt"

	"engage/internal/config"
	"engage/internal/repository"
	"engage/internal/service"
	"engage/internal/service/auth"
	"engage/pkg/database"
	"engage/pkg/logger"
	"engage/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Services     *service.Services
}

// New connects to PostgreSQL and, when configured, Redis, then wires every service.
// A Redis failure only disables caching.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        cfg.DatabaseMaxConns,
		ApplicationName: "engage",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection pool initialized")

	return Build(cfg, logger, db, connectRedis(cfg, logger)), nil
}

func connectRedis(cfg *config.Config, logger *logger.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("Redis URL not configured, proceeding without caching")
		return nil
	}

	client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Named("redis"))
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		return nil
	}
	logger.Info("Redis client initialized successfully")
	return client
}

// Build wires repositories and services over already opened connections. redisClient may be nil.
func Build(cfg *config.Config, logger *logger.Logger, db *database.PostgresDB, redisClient *redis.Client) *Container {
	repos := repository.NewRepositories(db)
	clock := service.SystemClock(cfg.Location)
	zl := logger.Logger

	cache := service.NewCacheService(redisClient, zl.Named("cache"), cfg.LeaderboardCacheTTL)
	notifications := service.NewNotificationService(repos.Notification, cache, zl.Named("notification"))
	ranking := service.NewRankingService(repos.Team, repos.Participation, zl.Named("ranking"), clock)
	leaderboard := service.NewLeaderboardService(repos, cache, zl.Named("leaderboard"), clock)
	award := service.NewAwardService(repos, ranking, cache, zl.Named("award"), clock)
	activity := service.NewActivityService(repos, leaderboard, award, ranking, notifications, cache, zl.Named("activity"), clock)

	services := &service.Services{
		Auth:         auth.NewService(cfg.JWTSecret, logger),
		Award:        award,
		Ranking:      ranking,
		Leaderboard:  leaderboard,
		Team:         service.NewTeamService(repos, ranking, cache, zl.Named("team")),
		Activity:     activity,
		Notification: notifications,
		Store:        service.NewStoreService(repos, notifications, zl.Named("store")),
		User:         service.NewUserService(repos, zl.Named("user")),
		Lifecycle:    service.NewLifecycleService(activity, ranking, cache, logger, cfg.LifecycleInterval, clock),
		Cache:        cache,
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		RedisClient:  redisClient,
		Repositories: repos,
		Services:     services,
	}
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// Close releases the Redis client and the database pool
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.DB != nil && c.DB.Pool != nil {
		c.DB.Close()
	}
	return errors.Join(errs...)
}
