package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/adapters/database"
	metricsAdapter "github.com/avolkhov/newspulse/internal/adapters/metrics"
	redisAdapter "github.com/avolkhov/newspulse/internal/adapters/redis"
	"github.com/avolkhov/newspulse/internal/adapters/telegram"
	"github.com/avolkhov/newspulse/internal/health"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/internal/narratives"
	"github.com/avolkhov/newspulse/internal/signals"
	"github.com/avolkhov/newspulse/internal/workers"
	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/metrics"
	"github.com/avolkhov/newspulse/pkg/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("signal engine starting...")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	metricsBuffer := initMetrics(cfg)
	defer metricsBuffer.Close(context.Background())

	// Repositories
	mentionRepo := mentions.NewRepository(db.DB())
	signalRepo := signals.NewRepository(db.DB())
	narrativeRepo := narratives.NewRepository(db.DB())

	// Scoring pipeline
	matcher := narratives.NewMatcher(narrativeRepo, cfg.Scoring.EmergingThreshold)
	scorer := signals.NewScorer(mentionRepo, matcher, signalRepo, cfg.Scoring)
	auditor := narratives.NewAuditor(narrativeRepo, mentionRepo)

	// Optional ops notifier
	var notifier workers.AuditNotifier
	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			logger.Error("failed to create telegram notifier", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	// Background workers
	group := worker.NewWorkerGroup(ctx)
	group.Add(
		workers.NewScoringWorker(
			mentionRepo,
			scorer,
			redisClient.NewMaintenanceLock("scoring"),
			metricsBuffer,
			cfg.Scoring.Parallelism,
		),
		cfg.Workers.ScoringInterval,
	)
	group.Add(
		workers.NewAuditWorker(auditor, metricsBuffer, notifier),
		cfg.Workers.AuditInterval,
	)
	group.Start()

	// Health check server
	healthServer := health.NewServer(cfg.Health.Port, db, redisClient)
	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Error("health server error", zap.Error(err))
		}
	}()
	healthServer.SetReady(true)

	logger.Info("🚀 signal engine ready")

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	group.Stop(cfg.Workers.StopTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Workers.StopTimeout)
	defer shutdownCancel()
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	return nil
}

// initMetrics wires the ClickHouse metrics sink, falling back to a
// no-op buffer when it is disabled or unreachable
func initMetrics(cfg *config.Config) metrics.Buffer {
	if !cfg.ClickHouse.Enabled {
		return metrics.NopBuffer{}
	}

	ch, err := database.NewClickHouse(cfg.ClickHouse.GetDSN())
	if err != nil {
		logger.Warn("ClickHouse not available, metrics disabled", zap.Error(err))
		return metrics.NopBuffer{}
	}

	if err := ch.Ping(); err != nil {
		ch.Close()
		logger.Warn("ClickHouse ping failed, metrics disabled", zap.Error(err))
		return metrics.NopBuffer{}
	}

	logger.Info("ClickHouse connection established",
		zap.String("host", cfg.ClickHouse.Host),
		zap.String("database", cfg.ClickHouse.Database),
	)

	return metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer: metricsAdapter.NewWriter(metricsAdapter.NewClickHouseRepository(ch.DB())),
	})
}
