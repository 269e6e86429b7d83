package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/redis"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/internal/signals"
	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/metrics"
	"github.com/avolkhov/newspulse/pkg/models"
)

// EntityLister finds the entities eligible for a scoring pass
type EntityLister interface {
	ActiveEntities(ctx context.Context, since time.Time) ([]mentions.EntityRef, error)
}

// EntityScorer scores one entity
type EntityScorer interface {
	Score(ctx context.Context, entity string, entityType models.EntityType) (*signals.Result, error)
}

// ScoringWorker runs periodic scoring passes over all entities with
// recent mention activity. Entities are independent, so the pass fans
// out with bounded parallelism; each entity's upsert is atomic on its
// own. The pass holds the maintenance lock for its duration so the
// mention backfill and timestamp repair cannot mutate fields the
// calculators read mid-pass.
type ScoringWorker struct {
	entities    EntityLister
	scorer      EntityScorer
	lock        redis.Lock
	buffer      metrics.Buffer
	parallelism int
}

// NewScoringWorker creates new scoring worker
func NewScoringWorker(entities EntityLister, scorer EntityScorer, lock redis.Lock, buffer metrics.Buffer, parallelism int) *ScoringWorker {
	if parallelism < 1 {
		parallelism = 1
	}
	return &ScoringWorker{
		entities:    entities,
		scorer:      scorer,
		lock:        lock,
		buffer:      buffer,
		parallelism: parallelism,
	}
}

// Name returns worker name for logging
func (w *ScoringWorker) Name() string {
	return "signal-scoring"
}

// Run executes one scoring pass
func (w *ScoringWorker) Run(ctx context.Context) error {
	acquired, err := w.lock.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Warn("maintenance in progress, skipping scoring pass")
		return nil
	}
	defer func() {
		if err := w.lock.Release(ctx); err != nil {
			logger.Warn("failed to release maintenance lock after scoring", zap.Error(err))
		}
	}()

	started := time.Now()

	// The widest scoring window bounds eligibility: entities with no
	// valid primary mention in 30d have nothing to score.
	refs, err := w.entities.ActiveEntities(ctx, started.Add(-models.Timeframe30d.Window()))
	if err != nil {
		return err
	}

	if len(refs) == 0 {
		logger.Debug("no active entities to score")
		return nil
	}

	var (
		mu  sync.Mutex
		run metrics.ScoringRunMetric
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, w.parallelism)

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(ref mentions.EntityRef) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := w.scorer.Score(ctx, ref.Entity, ref.EntityType)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				run.EntitiesFailed++
				logger.Error("failed to score entity",
					zap.String("entity", ref.Entity),
					zap.Error(err),
				)
				return
			}

			run.EntitiesScored++
			if result.Signal.IsEmerging {
				run.EmergingSignals++
			}
			for _, wm := range result.Windows {
				run.MentionsSeen += wm.MentionCount
				run.OrphansSkipped += wm.SkippedOrphans
			}
		}(ref)
	}

	wg.Wait()

	run.Timestamp = started
	run.DurationMs = time.Since(started).Milliseconds()
	if err := w.buffer.Add(&run); err != nil {
		logger.Warn("failed to record scoring run metric", zap.Error(err))
	}

	logger.Info("scoring pass completed",
		zap.Int("scored", run.EntitiesScored),
		zap.Int("failed", run.EntitiesFailed),
		zap.Int("emerging", run.EmergingSignals),
		zap.Int("orphans_skipped", run.OrphansSkipped),
		zap.Duration("took", time.Since(started)),
	)

	return ctx.Err()
}
