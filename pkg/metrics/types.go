package metrics

import "time"

// ScoringRunMetric records the outcome of one scoring pass
type ScoringRunMetric struct {
	Timestamp       time.Time
	EntitiesScored  int
	EntitiesFailed  int
	MentionsSeen    int
	OrphansSkipped  int
	EmergingSignals int
	DurationMs      int64
}

func (m *ScoringRunMetric) TableName() string {
	return "scoring_runs"
}

func (m *ScoringRunMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.EntitiesScored,
		m.EntitiesFailed,
		m.MentionsSeen,
		m.OrphansSkipped,
		m.EmergingSignals,
		m.DurationMs,
	}
}

// AuditRunMetric records the outcome of one narrative audit pass
type AuditRunMetric struct {
	Timestamp          time.Time
	NarrativesScanned  int
	CountMismatches    int
	DuplicateSets      int
	NarrativesOrphaned int
	Repaired           int
	DurationMs         int64
}

func (m *AuditRunMetric) TableName() string {
	return "audit_runs"
}

func (m *AuditRunMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.NarrativesScanned,
		m.CountMismatches,
		m.DuplicateSets,
		m.NarrativesOrphaned,
		m.Repaired,
		m.DurationMs,
	}
}
