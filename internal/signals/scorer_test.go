package signals

import (
	"context"
	"testing"
	"time"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/internal/mentions"
	"github.com/avolkhov/newspulse/internal/narratives"
	"github.com/avolkhov/newspulse/pkg/models"
)

var testScoringConfig = config.ScoringConfig{
	VelocityWeight:    0.35,
	VolumeWeight:      0.25,
	DiversityWeight:   0.25,
	SentimentWeight:   0.15,
	SourceCountClamp:  5,
	EmergingThreshold: 0.5,
	Parallelism:       1,
}

// fakeMentionSource serves window snapshots from an in-memory mention
// list, excluding orphans the way the repository scan does
type fakeMentionSource struct {
	mentions []models.EntityMention
	orphans  map[string]bool // article ids whose article is gone
}

func (f *fakeMentionSource) WindowSnapshot(ctx context.Context, entity string, from, to time.Time) (*mentions.Snapshot, error) {
	snap := &mentions.Snapshot{}
	for _, m := range f.mentions {
		if models.CanonicalEntity(m.Entity) != entity || !m.IsPrimary {
			continue
		}
		if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		if m.ArticleID == "" || f.orphans[m.ArticleID] {
			snap.SkippedOrphans++
			continue
		}
		snap.Mentions = append(snap.Mentions, m)
	}
	return snap, nil
}

// fakeNarrativeFinder backs a real Matcher in scorer tests
type fakeNarrativeFinder struct {
	narratives map[string][]models.Narrative
}

func (f *fakeNarrativeFinder) FindActiveByNucleus(ctx context.Context, entity string) ([]models.Narrative, error) {
	return f.narratives[entity], nil
}

// fakeSignalWriter captures upserted records keyed by entity
type fakeSignalWriter struct {
	records map[string]*models.SignalScore
	upserts int
}

func (f *fakeSignalWriter) Upsert(ctx context.Context, s *models.SignalScore) error {
	if f.records == nil {
		f.records = make(map[string]*models.SignalScore)
	}
	f.records[s.Entity] = s
	f.upserts++
	return nil
}

func newTestScorer(source MentionSource, finder narratives.Finder, writer SignalWriter, now time.Time) *Scorer {
	s := NewScorer(source, narratives.NewMatcher(finder, testScoringConfig.EmergingThreshold), writer, testScoringConfig)
	s.now = func() time.Time { return now }
	return s
}

func primaryMention(entity, source, articleID string, sentiment float64, at time.Time) models.EntityMention {
	return models.EntityMention{
		Entity:     entity,
		EntityType: models.EntityTypeCryptocurrency,
		IsPrimary:  true,
		Source:     source,
		ArticleID:  articleID,
		Sentiment:  sentiment,
		CreatedAt:  at,
	}
}

func TestScorer_BitcoinScenario(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Hour)

	source := &fakeMentionSource{
		mentions: []models.EntityMention{
			primaryMention("Bitcoin", "coindesk", "a1", 0.8, recent),
			primaryMention("Bitcoin", "decrypt", "a2", 0.6, recent),
			primaryMention("Bitcoin", "cointelegraph", "a3", 0.9, recent),
		},
	}
	finder := &fakeNarrativeFinder{
		narratives: map[string][]models.Narrative{
			"bitcoin": {{ID: "n1", NucleusEntity: "Bitcoin", State: models.NarrativeActive}},
		},
	}
	writer := &fakeSignalWriter{}

	result, err := newTestScorer(source, finder, writer, now).Score(context.Background(), "Bitcoin", models.EntityTypeCryptocurrency)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	sig := result.Signal
	if sig.SourceCount != 3 {
		t.Errorf("Expected source_count 3, got %d", sig.SourceCount)
	}
	if sig.IsEmerging {
		t.Error("Entity with a matching narrative must not be emerging")
	}
	if len(sig.NarrativeIDs) != 1 || sig.NarrativeIDs[0] != "n1" {
		t.Errorf("Expected narrative_ids [n1], got %v", sig.NarrativeIDs)
	}
	if sig.Score24h <= 0 {
		t.Errorf("Expected positive 24h score, got %v", sig.Score24h)
	}
	if sig.Score != sig.Score24h {
		t.Errorf("Score must mirror the 24h timeframe: score=%v score_24h=%v", sig.Score, sig.Score24h)
	}
	if writer.upserts != 1 {
		t.Errorf("Expected exactly one upsert, got %d", writer.upserts)
	}
}

func TestScorer_NoMentionsYieldsZeroRecord(t *testing.T) {
	now := time.Now()
	writer := &fakeSignalWriter{}

	result, err := newTestScorer(&fakeMentionSource{}, &fakeNarrativeFinder{}, writer, now).
		Score(context.Background(), "Nonexistent", models.EntityTypeConcept)
	if err != nil {
		t.Fatalf("Absence of mentions must not be an error: %v", err)
	}

	sig := result.Signal
	if sig.Score != 0 || sig.Score24h != 0 || sig.Score7d != 0 || sig.Score30d != 0 {
		t.Errorf("Expected all-zero scores, got %+v", sig)
	}
	if sig.IsEmerging {
		t.Error("Zero score must not qualify as emerging")
	}
	if writer.upserts != 1 {
		t.Error("Zero record must still be upserted")
	}
}

func TestScorer_EmergingFlag(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	// Heavy recent coverage, no narrative anywhere
	source := &fakeMentionSource{}
	for i, src := range []string{"coindesk", "decrypt", "cointelegraph", "theblock", "blockworks"} {
		source.mentions = append(source.mentions,
			primaryMention("NewChain", src, "a"+string(rune('1'+i)), 0.9, recent))
	}
	writer := &fakeSignalWriter{}

	result, err := newTestScorer(source, &fakeNarrativeFinder{}, writer, now).
		Score(context.Background(), "NewChain", models.EntityTypeBlockchain)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	sig := result.Signal
	if sig.Score < testScoringConfig.EmergingThreshold {
		t.Fatalf("Test setup broken: score %v below threshold", sig.Score)
	}
	if !sig.IsEmerging {
		t.Error("Qualifying score with no narrative must be flagged emerging")
	}
	if len(sig.NarrativeIDs) != 0 {
		t.Errorf("Emerging signal must have empty narrative_ids, got %v", sig.NarrativeIDs)
	}
}

func TestScorer_OrphanExclusion(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	valid := &fakeMentionSource{
		mentions: []models.EntityMention{
			primaryMention("Solana", "coindesk", "a1", 0.5, recent),
			primaryMention("Solana", "decrypt", "a2", 0.5, recent),
		},
	}
	withOrphans := &fakeMentionSource{
		mentions: append(valid.mentions,
			primaryMention("Solana", "theblock", "gone1", 1.0, recent),
			primaryMention("Solana", "blockworks", "gone2", 1.0, recent),
		),
		orphans: map[string]bool{"gone1": true, "gone2": true},
	}

	base, err := newTestScorer(valid, &fakeNarrativeFinder{}, &fakeSignalWriter{}, now).
		Score(context.Background(), "Solana", models.EntityTypeBlockchain)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	got, err := newTestScorer(withOrphans, &fakeNarrativeFinder{}, &fakeSignalWriter{}, now).
		Score(context.Background(), "Solana", models.EntityTypeBlockchain)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if got.Signal.Score != base.Signal.Score {
		t.Errorf("Orphaned mentions must contribute nothing: %v != %v", got.Signal.Score, base.Signal.Score)
	}
	if got.Signal.SourceCount != 2 {
		t.Errorf("Expected orphan sources excluded from diversity, got %d", got.Signal.SourceCount)
	}
	if got.Windows[models.Timeframe24h].SkippedOrphans == 0 {
		t.Error("Skipped orphans must be counted for observability")
	}
}

func TestScorer_MonotonicInMentions(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	var prev float64
	for n := 1; n <= 12; n++ {
		source := &fakeMentionSource{}
		for i := 0; i < n; i++ {
			// Same single source and identical sentiment; only volume grows
			source.mentions = append(source.mentions,
				primaryMention("Ethereum", "coindesk", "a1", 0.3, recent))
		}

		result, err := newTestScorer(source, &fakeNarrativeFinder{}, &fakeSignalWriter{}, now).
			Score(context.Background(), "Ethereum", models.EntityTypeCryptocurrency)
		if err != nil {
			t.Fatalf("Score failed at n=%d: %v", n, err)
		}

		if result.Signal.Score24h < prev {
			t.Errorf("More mentions decreased the score: n=%d score=%v prev=%v",
				n, result.Signal.Score24h, prev)
		}
		prev = result.Signal.Score24h
	}
}

func TestScorer_SourceCountClampedInRecord(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	source := &fakeMentionSource{}
	for i, src := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"} {
		source.mentions = append(source.mentions,
			primaryMention("Bitcoin", src, "a"+string(rune('1'+i)), 0, recent))
	}

	result, err := newTestScorer(source, &fakeNarrativeFinder{}, &fakeSignalWriter{}, now).
		Score(context.Background(), "Bitcoin", models.EntityTypeCryptocurrency)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Signal.SourceCount != 5 {
		t.Errorf("Expected clamped source_count 5 for 7 raw sources, got %d", result.Signal.SourceCount)
	}
	if result.Windows[models.Timeframe24h].RawSourceCount != 7 {
		t.Errorf("Raw diagnostic count should stay 7, got %d", result.Windows[models.Timeframe24h].RawSourceCount)
	}
}

func TestScorer_VelocityUsesPriorWindowBaseline(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	source := &fakeMentionSource{
		mentions: []models.EntityMention{
			// 4 mentions in the current 24h window, 2 in the prior one
			primaryMention("XRP", "coindesk", "a1", 0, now.Add(-1*time.Hour)),
			primaryMention("XRP", "coindesk", "a2", 0, now.Add(-2*time.Hour)),
			primaryMention("XRP", "decrypt", "a3", 0, now.Add(-3*time.Hour)),
			primaryMention("XRP", "decrypt", "a4", 0, now.Add(-4*time.Hour)),
			primaryMention("XRP", "coindesk", "a5", 0, now.Add(-30*time.Hour)),
			primaryMention("XRP", "decrypt", "a6", 0, now.Add(-40*time.Hour)),
		},
	}

	result, err := newTestScorer(source, &fakeNarrativeFinder{}, &fakeSignalWriter{}, now).
		Score(context.Background(), "XRP", models.EntityTypeCryptocurrency)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if got := result.Windows[models.Timeframe24h].Velocity; got != 2.0 {
		t.Errorf("Expected 24h velocity 4/2 = 2.0, got %v", got)
	}
}
