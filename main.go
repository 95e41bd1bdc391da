package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"engage/internal/config"
	"engage/internal/container"
	"engage/internal/handler"
	"engage/internal/middleware"
	"engage/internal/service"
	"engage/pkg/logger"
)

const version = "1.0.0"

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	lifecycle service.LifecycleService
	server    *http.Server
	log       *logger.Logger
	mu        sync.Mutex
	closed    bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Let the running maintenance pass finish before the pool goes away
	if r.lifecycle != nil {
		r.log.Info("Stopping lifecycle worker...")
		if err := r.lifecycle.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop lifecycle worker")
			errors = append(errors, fmt.Errorf("lifecycle shutdown: %w", err))
		} else {
			r.log.Info("Lifecycle worker stopped")
		}
	}

	if r.container != nil {
		if redisClient := r.container.GetRedisClient(); redisClient != nil {
			healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
			if err := redisClient.Health(healthCtx); err != nil {
				r.log.WithError(err).Warn("Redis health check failed before closing")
			}
			healthCancel()
		}
		if db := r.container.DB; db != nil {
			healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
			if err := db.Health(healthCtx); err != nil {
				r.log.WithError(err).Warn("Database health check failed before closing")
			}
			healthCancel()
		}

		r.log.Info("Closing Redis connection and database pool...")
		if err := r.container.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close connections")
			errors = append(errors, err)
		} else {
			r.log.Info("Connections closed successfully")
		}
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewWithOptions(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"timezone":    cfg.Timezone,
	}).Info("Starting engage server")

	ctx := context.Background()

	// Connect storage and wire services
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	resources := &Resources{container: c, log: log}

	if cfg.LifecycleEnabled {
		if err := c.Services.Lifecycle.Start(ctx); err != nil {
			log.WithError(err).Fatal("Failed to start lifecycle worker")
		}
		resources.lifecycle = c.Services.Lifecycle
	}

	router := setupRouter(c)

	resources.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Runs on every exit path
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := resources.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	services := c.Services

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	mw := handler.Middlewares{
		Auth:         middleware.Auth(services.Auth, services.User, log),
		OptionalAuth: middleware.OptionalAuth(services.Auth, services.User, log),
		Staff:        middleware.RequireStaff(log),
	}

	// A nil *redis.Client must not reach the handler as a non-nil interface
	var cachePinger handler.Pinger
	if c.HasRedis() {
		cachePinger = c.GetRedisClient()
	}
	handler.NewHealthHandler(c.DB, cachePinger, services.Cache, version, log).RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		handler.NewActivityHandler(services.Activity, services.Award, log).RegisterRoutes(r, mw)
		handler.NewLeaderboardHandler(services.Leaderboard, log).RegisterRoutes(r, mw)
		handler.NewTeamHandler(services.Team, log).RegisterRoutes(r, mw)
		handler.NewNotificationHandler(services.Notification, log).RegisterRoutes(r, mw)
		handler.NewStoreHandler(services.Store, log).RegisterRoutes(r, mw)
		handler.NewUserHandler(services.User, log).RegisterRoutes(r, mw)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
