package signals

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/models"
)

// MentionSource provides windowed mention snapshots
type MentionSource interface {
	WindowSnapshot(ctx context.Context, entity string, from, to time.Time) (*mentions.Snapshot, error)
}

// NarrativeLinker decides which narratives a scored entity belongs to
type NarrativeLinker interface {
	Link(ctx context.Context, entity string, score float64) (narrativeIDs []string, emerging bool, err error)
}

// SignalWriter persists signal score records
type SignalWriter interface {
	Upsert(ctx context.Context, s *models.SignalScore) error
}

// Scorer computes multi-timeframe composite signal scores.
//
// The composite combines velocity, mention volume, clamped source
// diversity, and sentiment with fixed configured weights:
//
//	score = Wv*velocity + Wvol*ln(1+mentions) + Wd*(sources/clamp) + Ws*(mean+1)/2
//
// Every term is non-negative and non-decreasing in its input, so the
// composite is monotonic in mentions, sources, and sentiment.
type Scorer struct {
	source MentionSource
	linker NarrativeLinker
	writer SignalWriter
	cfg    config.ScoringConfig
	now    func() time.Time
}

// NewScorer creates new signal scorer
func NewScorer(source MentionSource, linker NarrativeLinker, writer SignalWriter, cfg config.ScoringConfig) *Scorer {
	return &Scorer{
		source: source,
		linker: linker,
		writer: writer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Result is the outcome of scoring one entity: the persisted record
// plus per-window diagnostics.
type Result struct {
	Signal  *models.SignalScore
	Windows map[models.Timeframe]models.WindowMetrics
}

// Score computes the composite score for entity across all timeframes,
// links it against active narratives, and replaces the entity's signal
// record. An entity with zero mentions yields a zero record, not an
// error.
func (s *Scorer) Score(ctx context.Context, entity string, entityType models.EntityType) (*Result, error) {
	canonical := models.CanonicalEntity(entity)
	now := s.now()

	windows := make(map[models.Timeframe]models.WindowMetrics, len(models.Timeframes))

	for _, tf := range models.Timeframes {
		wm, err := s.scoreWindow(ctx, canonical, now, tf)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s window for %q: %w", tf, canonical, err)
		}
		windows[tf] = wm
	}

	w24 := windows[models.Timeframe24h]

	record := &models.SignalScore{
		Entity:      canonical,
		EntityType:  models.NormalizeEntityType(entityType),
		Score:       w24.Score, // primary timeframe, for single-timeframe consumers
		Score24h:    w24.Score,
		Score7d:     windows[models.Timeframe7d].Score,
		Score30d:    windows[models.Timeframe30d].Score,
		Velocity:    w24.Velocity,
		SourceCount: w24.SourceCount,
		ScoredAt:    now,
	}

	narrativeIDs, emerging, err := s.linker.Link(ctx, canonical, record.Score)
	if err != nil {
		return nil, fmt.Errorf("failed to link %q against narratives: %w", canonical, err)
	}
	record.NarrativeIDs = pq.StringArray(narrativeIDs)
	record.IsEmerging = emerging

	if err := s.writer.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert signal for %q: %w", canonical, err)
	}

	logger.Debug("entity scored",
		zap.String("entity", canonical),
		zap.Float64("score", record.Score),
		zap.Int("narratives", len(record.NarrativeIDs)),
		zap.Bool("emerging", record.IsEmerging),
	)

	return &Result{Signal: record, Windows: windows}, nil
}

// scoreWindow computes the sub-metrics and composite for one timeframe.
// The prior window of equal length immediately precedes the current one
// and provides the velocity baseline.
func (s *Scorer) scoreWindow(ctx context.Context, entity string, now time.Time, tf models.Timeframe) (models.WindowMetrics, error) {
	window := tf.Window()
	from := now.Add(-window)

	cur, err := s.source.WindowSnapshot(ctx, entity, from, now)
	if err != nil {
		return models.WindowMetrics{}, err
	}

	prior, err := s.source.WindowSnapshot(ctx, entity, from.Add(-window), from)
	if err != nil {
		return models.WindowMetrics{}, err
	}

	rawSources := SourceDiversity(cur.Mentions)
	sentiment := Sentiment(cur.Mentions)

	wm := models.WindowMetrics{
		MentionCount:   len(cur.Mentions),
		SkippedOrphans: cur.SkippedOrphans + prior.SkippedOrphans,
		Velocity:       Velocity(len(cur.Mentions), len(prior.Mentions)),
		RawSourceCount: rawSources,
		SourceCount:    ClampSourceCount(rawSources, s.cfg.SourceCountClamp),
		SentimentMean:  sentiment.Mean,
		SentimentCount: sentiment.Count,
	}
	wm.Score = s.composite(wm)

	return wm, nil
}

// composite folds the window metrics into one score. Zero mentions is a
// zero score regardless of weights.
func (s *Scorer) composite(wm models.WindowMetrics) float64 {
	if wm.MentionCount == 0 {
		return 0
	}

	velocity := s.cfg.VelocityWeight * wm.Velocity
	volume := s.cfg.VolumeWeight * math.Log1p(float64(wm.MentionCount))
	diversity := s.cfg.DiversityWeight * float64(wm.SourceCount) / float64(s.cfg.SourceCountClamp)
	// Sentiment mean is in [-1, 1]; shift to [0, 1] so a negative mood
	// dampens the score instead of subtracting from other signals.
	sentiment := s.cfg.SentimentWeight * (wm.SentimentMean + 1) / 2

	return velocity + volume + diversity + sentiment
}
