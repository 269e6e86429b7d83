package models

import (
	"time"

	"github.com/lib/pq"
)

// Timeframe identifies one of the fixed scoring windows.
type Timeframe string

const (
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// Window returns the duration covered by the timeframe.
func (tf Timeframe) Window() time.Duration {
	switch tf {
	case Timeframe24h:
		return 24 * time.Hour
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Timeframes lists the scoring windows in ascending order. 24h is the
// primary timeframe: Score mirrors Score24h for single-timeframe consumers.
var Timeframes = []Timeframe{Timeframe24h, Timeframe7d, Timeframe30d}

// WindowMetrics holds the per-window sub-metrics that feed the composite
// score. RawSourceCount keeps the unclamped distinct-source count for
// diagnostics; SourceCount is the clamped value the score actually uses.
type WindowMetrics struct {
	MentionCount   int     `json:"mention_count"`
	SkippedOrphans int     `json:"skipped_orphans"`
	Velocity       float64 `json:"velocity"`
	SourceCount    int     `json:"source_count"`
	RawSourceCount int     `json:"raw_source_count"`
	SentimentMean  float64 `json:"sentiment_mean"`
	SentimentCount int     `json:"sentiment_count"`
	Score          float64 `json:"score"`
}

// SignalScore is the live trending record for one entity. One row per
// entity; a scoring run replaces the whole record.
type SignalScore struct {
	Entity       string         `json:"entity" db:"entity"`
	EntityType   EntityType     `json:"entity_type" db:"entity_type"`
	Score        float64        `json:"score" db:"score"`
	Score24h     float64        `json:"score_24h" db:"score_24h"`
	Score7d      float64        `json:"score_7d" db:"score_7d"`
	Score30d     float64        `json:"score_30d" db:"score_30d"`
	Velocity     float64        `json:"velocity" db:"velocity"`
	SourceCount  int            `json:"source_count" db:"source_count"`
	NarrativeIDs pq.StringArray `json:"narrative_ids" db:"narrative_ids"`
	IsEmerging   bool           `json:"is_emerging" db:"is_emerging"`
	ScoredAt     time.Time      `json:"scored_at" db:"scored_at"`
}

// TrendingSignal is a SignalScore joined with display fields for the
// narratives it links to. Consumed by the API layer.
type TrendingSignal struct {
	SignalScore
	NarrativeTitles []string `json:"narrative_titles,omitempty"`
}
