//go:generate swag init -d ../.. -g cmd/api/main.go -o ../../internal/docs --outputTypes go,json

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/events"
	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/server"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// @title           Fintrack API
// @version         1.0
// @description     Personal finance tracker: transactions, categories, analytics and user administration.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsProduction() && cfg.JWTSecret == config.DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}

	// Create database manager
	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	backend, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()
	store := cache.NewStore(backend)

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db, store, publisher, cfg.AllowAdminSignup)
	categoryService := services.NewCategoryService(db, store, publisher)
	transactionService := services.NewTransactionService(db, store, publisher, services.TransactionOptions{
		EnforceCategoryTypeMatch: cfg.EnforceCategoryTypeMatch,
	})
	analyticsService := services.NewAnalyticsService(db, store, time.Now)
	auditService := services.NewAuditService(db)

	limiters, stopLimiters := server.NewLimiters(cfg)
	defer stopLimiters()

	var cachePinger handlers.Pinger
	if store.Enabled() {
		cachePinger = backend
	}

	router := server.NewRouter(server.Deps{
		Config:       cfg,
		Tokens:       middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTExpirationDur),
		Users:        userService,
		Categories:   categoryService,
		Transactions: transactionService,
		Analytics:    analyticsService,
		Audit:        auditService,
		Limiters:     limiters,
		DB:           dbManager,
		Cache:        cachePinger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Fintrack API on port %s (db=%s, cache=%s)", cfg.Port, dbManager.Driver(), cfg.CacheDriver)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newCache returns the backend selected by CACHE_DRIVER. An unreachable
// Redis is logged and kept: the store treats its errors as misses.
func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheDriver {
	case config.CacheMemory:
		return cache.NewMemory(cfg.CacheMaxEntries, time.Minute), nil
	case config.CacheRedis:
		r := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			logger.Get().Warnf("Redis at %s is unreachable, continuing without cache hits: %v", cfg.RedisAddr(), err)
		} else {
			logger.Get().Infof("Connected to Redis at %s", cfg.RedisAddr())
		}
		return r, nil
	default:
		return cache.Noop{}, nil
	}
}

// newPublisher returns a queued AMQP publisher when AMQP_URL is set.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Noop{}, nil
	}
	p, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	logger.Get().Infof("Publishing events to exchange %s", cfg.AMQPExchange)
	return events.NewAsync(p, events.DefaultQueueSize, 0), nil
}
