package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/redis"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// MentionMaintainer provides the mention repair operations
type MentionMaintainer interface {
	BackfillSources(ctx context.Context) (int64, error)
	RepairTimestamps(ctx context.Context) (int64, error)
}

// Runner executes mention maintenance under the shared maintenance
// lock. These operations mutate fields the metric calculators read
// (source, created_at), so they must never overlap a scoring pass:
// both sides serialize on the same lock.
type Runner struct {
	repo MentionMaintainer
	lock redis.Lock
}

// NewRunner creates new maintenance runner
func NewRunner(repo MentionMaintainer, lock redis.Lock) *Runner {
	return &Runner{repo: repo, lock: lock}
}

// BackfillSources re-copies article sources onto mentions
func (r *Runner) BackfillSources(ctx context.Context) (int64, error) {
	return r.withLock(ctx, "backfill-sources", r.repo.BackfillSources)
}

// RepairTimestamps resets mention timestamps to article published_at
func (r *Runner) RepairTimestamps(ctx context.Context) (int64, error) {
	return r.withLock(ctx, "repair-timestamps", r.repo.RepairTimestamps)
}

func (r *Runner) withLock(ctx context.Context, op string, fn func(context.Context) (int64, error)) (int64, error) {
	acquired, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire maintenance lock: %w", err)
	}
	if !acquired {
		return 0, fmt.Errorf("maintenance lock busy, refusing to run %s", op)
	}
	defer func() {
		if err := r.lock.Release(ctx); err != nil {
			logger.Warn("failed to release maintenance lock",
				zap.String("operation", op),
				zap.Error(err),
			)
		}
	}()

	started := time.Now()
	affected, err := fn(ctx)
	if err != nil {
		return 0, err
	}

	logger.Info("maintenance operation completed",
		zap.String("operation", op),
		zap.Int64("rows_affected", affected),
		zap.Duration("took", time.Since(started)),
	)

	return affected, nil
}
