package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/adapters/database"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/internal/narratives"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// One-shot narrative consistency audit. Audit mode only reports;
// -repair performs the explicit fix pass.
func main() {
	repair := flag.Bool("repair", false, "repair flagged narratives after auditing")
	jsonOut := flag.Bool("json", false, "print the audit report as JSON")
	flag.Parse()

	if err := run(context.Background(), *repair, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, repair, jsonOut bool) error {
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

	auditor := narratives.NewAuditor(
		narratives.NewRepository(db.DB()),
		mentions.NewRepository(db.DB()),
	)

	report, err := auditor.Audit(ctx)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	if report.Clean() {
		logger.Info("all narratives consistent",
			zap.Int("scanned", report.NarrativesScanned),
		)
		return nil
	}

	if !repair {
		logger.Warn("inconsistencies found, re-run with -repair to fix",
			zap.Int("findings", len(report.Findings)),
		)
		return nil
	}

	result, err := auditor.Repair(ctx)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	logger.Info("repair completed",
		zap.Int("repaired", result.NarrativesRepaired),
		zap.Int("duplicates_removed", result.DuplicatesRemoved),
		zap.Int("counts_corrected", result.CountsCorrected),
	)

	return nil
}
