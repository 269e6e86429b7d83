package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/adapters/database"
	"github.com/avolkhov/newspulse/internal/signals"
	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/models"
)

// Prints the current trending signals as JSON. Reads the same query
// surface the API layer serves, so it doubles as a smoke check on a
// live deployment.
func main() {
	limit := flag.Int("limit", 20, "maximum number of signals to return")
	minScore := flag.Float64("min-score", 0, "minimum score filter")
	entityType := flag.String("type", "", "filter by entity type (e.g. cryptocurrency, protocol)")
	flag.Parse()

	if err := run(context.Background(), *limit, *minScore, *entityType); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, limit int, minScore float64, entityType string) error {
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

	var typeFilter *models.EntityType
	if entityType != "" {
		t := models.NormalizeEntityType(models.EntityType(entityType))
		if !models.IsValidEntityType(t) {
			return fmt.Errorf("unknown entity type %q", entityType)
		}
		typeFilter = &t
	}

	trending, err := signals.NewRepository(db.DB()).GetTrendingSignals(ctx, limit, minScore, typeFilter)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(trending)
}
