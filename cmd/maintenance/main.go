package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/adapters/database"
	redisAdapter "github.com/avolkhov/newspulse/internal/adapters/redis"
	"github.com/avolkhov/newspulse/internal/maintenance"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// Mention maintenance entrypoint. Both operations repair denormalized
// mention fields from the owning article and take the maintenance lock,
// so they cannot overlap a live scoring pass.
func main() {
	op := flag.String("op", "", "operation: backfill-sources | repair-timestamps")
	flag.Parse()

	if err := run(context.Background(), *op); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, op string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	runner := maintenance.NewRunner(
		mentions.NewRepository(db.DB()),
		redisClient.NewMaintenanceLock("maintenance-cli"),
	)

	var affected int64
	switch op {
	case "backfill-sources":
		affected, err = runner.BackfillSources(ctx)
	case "repair-timestamps":
		affected, err = runner.RepairTimestamps(ctx)
	default:
		return fmt.Errorf("unknown operation %q (want backfill-sources or repair-timestamps)", op)
	}
	if err != nil {
		return err
	}

	logger.Info("done", zap.String("op", op), zap.Int64("rows_affected", affected))

	return nil
}
