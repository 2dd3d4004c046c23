package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/metrics"
	"adventure-server/internal/prompt"
	"adventure-server/internal/repository"
	"adventure-server/internal/service"
	"adventure-server/internal/storygen"
	"adventure-server/migrations"
)

// newEngine собирает движок генерации и возвращает его health probe для /health.
func newEngine(cfg *config.Config, store repository.StoryStore, m *metrics.Metrics, log *zap.Logger) (*storygen.Engine, *service.HealthProbe, error) {
	backend, err := service.NewBackend(cfg, m, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generation backend: %w", err)
	}
	probe := service.NewHealthProbe(backend, cfg.AIModel, cfg.HealthTimeout, cfg.HealthRequireModel, m, log)
	limits := storygen.Limits{MaxDepth: cfg.StoryMaxDepth, MaxOptions: cfg.StoryMaxOptions}

	engine := storygen.NewEngine(storygen.EngineDeps{
		Health:  probe,
		Invoker: service.NewInvoker(backend, cfg.AITimeout, log),
		Prompts: prompt.NewBuilder(limits.MaxDepth, limits.MaxOptions),
		Store:   store,
		Metrics: m,
		Logger:  log,
	}, limits, cfg.AITimeout)
	return engine, probe, nil
}

// openStoryStore открывает хранилище по STORE_DRIVER. close освобождает ресурсы.
func openStoryStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.StoryStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		store, err := repository.OpenSQLiteStoryStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	pool, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPgStoryStore(pool, log), pool.Close, nil
}

// setupDatabase создает пул PostgreSQL, повторяя попытки, пока база поднимается.
func setupDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	const (
		maxRetries = 20
		retryDelay = 3 * time.Second
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(attemptCtx, poolConfig)
		if err == nil {
			err = pool.Ping(attemptCtx)
			if err != nil {
				pool.Close()
			}
		}
		cancel()
		if err == nil {
			log.Info("Connected to PostgreSQL", zap.String("dsn", cfg.MaskedDSN()), zap.Int("attempt", attempt))
			return pool, nil
		}

		lastErr = err
		log.Warn("PostgreSQL connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// runMigrations применяет встроенные миграции.
func runMigrations(dsn string, log *zap.Logger) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("Database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp.Connection, error) {
	const (
		maxRetries = 5
		retryDelay = 5 * time.Second
	)
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var conn *amqp.Connection
		if conn, err = amqp.Dial(url); err == nil {
			log.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}
