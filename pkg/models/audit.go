package models

import "time"

// FindingKind classifies a narrative consistency finding.
type FindingKind string

const (
	FindingCountMismatch    FindingKind = "count_mismatch"
	FindingDuplicateIDs     FindingKind = "duplicate_ids"
	FindingOrphanedArticles FindingKind = "orphaned_articles"
)

// AuditFinding is one invariant violation observed on one narrative.
// Findings are reported, never silently fixed; repair is a separate
// explicit pass.
type AuditFinding struct {
	NarrativeID string      `json:"narrative_id"`
	Theme       string      `json:"theme"`
	Kind        FindingKind `json:"kind"`
	// StoredCount / ActualCount are set for count_mismatch.
	StoredCount int `json:"stored_count,omitempty"`
	ActualCount int `json:"actual_count,omitempty"`
	// DuplicateIDs lists the repeated article ids for duplicate_ids.
	DuplicateIDs []string `json:"duplicate_ids,omitempty"`
	// OrphanIDs lists article ids with no stored article for orphaned_articles.
	OrphanIDs []string `json:"orphan_ids,omitempty"`
}

// AuditReport summarizes one audit pass over the narrative store.
type AuditReport struct {
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	NarrativesScanned  int            `json:"narratives_scanned"`
	Findings           []AuditFinding `json:"findings"`
	CountMismatches    int            `json:"count_mismatches"`
	DuplicateSets      int            `json:"duplicate_sets"`
	NarrativesOrphaned int            `json:"narratives_with_orphans"`
}

// Clean reports whether the pass found nothing to flag.
func (r *AuditReport) Clean() bool {
	return len(r.Findings) == 0
}

// RepairResult summarizes one repair pass. Repair is idempotent: a
// second pass over a repaired store reports zero repaired narratives.
type RepairResult struct {
	NarrativesScanned  int `json:"narratives_scanned"`
	NarrativesRepaired int `json:"narratives_repaired"`
	DuplicatesRemoved  int `json:"duplicates_removed"`
	CountsCorrected    int `json:"counts_corrected"`
}
