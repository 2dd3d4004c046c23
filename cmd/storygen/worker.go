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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adventure-server/internal/api"
	"adventure-server/internal/config"
	"adventure-server/internal/jobs"
	"adventure-server/internal/messaging"
	"adventure-server/internal/metrics"
	"adventure-server/internal/repository"
	"adventure-server/internal/service"
)

var runMigrationsOnStart bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queue consumer, HTTP API and metrics server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()
		if cfg.StoreDriver != config.StoreDriverPostgres {
			return fmt.Errorf("worker requires STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWorker(ctx, stop, cfg, log)
	},
}

func init() {
	workerCmd.Flags().BoolVar(&runMigrationsOnStart, "migrate", true, "Apply database migrations on start")
}

func runWorker(ctx context.Context, stop context.CancelFunc, cfg *config.Config, log *zap.Logger) error {
	m := metrics.New()

	pool, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if runMigrationsOnStart {
		if err := runMigrations(cfg.GetDSN(), log); err != nil {
			return err
		}
	}

	conn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := messaging.DeclareTaskTopology(ch, cfg.TaskQueue); err != nil {
		return err
	}
	if err := messaging.DeclareUpdatesQueue(ch, cfg.UpdatesQueue); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	stories := repository.NewPgStoryStore(pool, log)
	jobRepo := repository.NewPgJobRepository(pool, log)
	engine, probe, err := newEngine(cfg, stories, m, log)
	if err != nil {
		return err
	}

	runner := jobs.NewRunner(
		jobRepo,
		engine,
		messaging.NewTaskPublisher(ch, cfg.TaskQueue, log),
		service.NewRabbitMQNotifier(ch, cfg.UpdatesQueue, log),
		m,
		nil,
		log,
	)

	router := api.NewRouter(api.NewHandler(runner, jobRepo, stories, probe, log), api.RouterOptions{
		AllowedOrigins:       cfg.Origins(),
		CreateLimitPerMinute: cfg.CreateRateLimit,
	}, log)
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}

	serve := func(name string, srv *http.Server) {
		log.Info("Starting HTTP server", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.String("server", name), zap.Error(err))
			stop()
		}
	}
	go serve("api", httpServer)
	go serve("metrics", metricsServer)

	deliveries, err := ch.Consume(cfg.TaskQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		messaging.NewTaskConsumer(runner, log).Run(ctx, deliveries)
	}()

	log.Info("Worker started", zap.String("task_queue", cfg.TaskQueue))
	<-ctx.Done()
	log.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for name, srv := range map[string]*http.Server{"api": httpServer, "metrics": metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced to shutdown", zap.String("server", name), zap.Error(err))
		}
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Consumer did not stop in time")
	}
	log.Info("Worker stopped")
	return nil
}
