package narratives

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/models"
)

const defaultAuditPageSize = 200

// Store is the narrative access the auditor needs
type Store interface {
	ListPage(ctx context.Context, offset, limit int) ([]models.Narrative, error)
	UpdateArticleSet(ctx context.Context, id string, articleIDs []string, count int) error
}

// ArticleChecker reports which article ids still have a stored article
type ArticleChecker interface {
	ExistingArticleIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// Auditor verifies narrative bookkeeping: the cached article_count must
// equal the deduplicated size of article_ids, and article_ids must hold
// no duplicates. Audit only reports; Repair is the separate explicit
// write path.
type Auditor struct {
	store    Store
	articles ArticleChecker
	pageSize int
}

// NewAuditor creates new consistency auditor. articles may be nil, in
// which case orphan detection is skipped.
func NewAuditor(store Store, articles ArticleChecker) *Auditor {
	return &Auditor{
		store:    store,
		articles: articles,
		pageSize: defaultAuditPageSize,
	}
}

// Audit scans every narrative and reports count mismatches, duplicate
// article ids, and references to deleted articles. It performs no
// writes.
func (a *Auditor) Audit(ctx context.Context) (*models.AuditReport, error) {
	report := &models.AuditReport{StartedAt: time.Now()}

	err := a.scan(ctx, func(n models.Narrative) error {
		report.NarrativesScanned++

		deduped := n.DedupedArticleIDs()

		if dups := duplicateIDs(n.ArticleIDs, deduped); len(dups) > 0 {
			report.Findings = append(report.Findings, models.AuditFinding{
				NarrativeID:  n.ID,
				Theme:        n.Theme,
				Kind:         models.FindingDuplicateIDs,
				DuplicateIDs: dups,
			})
			report.DuplicateSets++
		}

		if n.ArticleCount != len(deduped) {
			report.Findings = append(report.Findings, models.AuditFinding{
				NarrativeID: n.ID,
				Theme:       n.Theme,
				Kind:        models.FindingCountMismatch,
				StoredCount: n.ArticleCount,
				ActualCount: len(deduped),
			})
			report.CountMismatches++
		}

		if a.articles != nil && len(deduped) > 0 {
			existing, err := a.articles.ExistingArticleIDs(ctx, deduped)
			if err != nil {
				return fmt.Errorf("failed to check articles for narrative %s: %w", n.ID, err)
			}

			var orphans []string
			for _, id := range deduped {
				if _, ok := existing[id]; !ok {
					orphans = append(orphans, id)
				}
			}

			// Orphans are reported but never change count semantics:
			// article_count reflects the id-set size, not existence.
			if len(orphans) > 0 {
				report.Findings = append(report.Findings, models.AuditFinding{
					NarrativeID: n.ID,
					Theme:       n.Theme,
					Kind:        models.FindingOrphanedArticles,
					OrphanIDs:   orphans,
				})
				report.NarrativesOrphaned++
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()

	logger.Info("narrative audit completed",
		zap.Int("scanned", report.NarrativesScanned),
		zap.Int("count_mismatches", report.CountMismatches),
		zap.Int("duplicate_sets", report.DuplicateSets),
		zap.Int("with_orphans", report.NarrativesOrphaned),
	)

	return report, nil
}

// Repair deduplicates article_ids (first occurrence wins) and resets
// article_count to the true cardinality, one atomic update per flagged
// narrative. Clean narratives are left untouched, which makes a second
// pass a no-op.
func (a *Auditor) Repair(ctx context.Context) (*models.RepairResult, error) {
	result := &models.RepairResult{}

	err := a.scan(ctx, func(n models.Narrative) error {
		result.NarrativesScanned++

		deduped := n.DedupedArticleIDs()
		hasDuplicates := len(deduped) != len(n.ArticleIDs)
		countDrifted := n.ArticleCount != len(deduped)

		if !hasDuplicates && !countDrifted {
			return nil
		}

		if err := a.store.UpdateArticleSet(ctx, n.ID, deduped, len(deduped)); err != nil {
			return fmt.Errorf("failed to repair narrative %s: %w", n.ID, err)
		}

		result.NarrativesRepaired++
		if hasDuplicates {
			result.DuplicatesRemoved += len(n.ArticleIDs) - len(deduped)
		}
		if countDrifted {
			result.CountsCorrected++
		}

		logger.Info("narrative repaired",
			zap.String("narrative_id", n.ID),
			zap.Int("old_count", n.ArticleCount),
			zap.Int("new_count", len(deduped)),
			zap.Int("duplicates_removed", len(n.ArticleIDs)-len(deduped)),
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// scan pages through every narrative, stopping on context cancellation
func (a *Auditor) scan(ctx context.Context, fn func(models.Narrative) error) error {
	for offset := 0; ; offset += a.pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := a.store.ListPage(ctx, offset, a.pageSize)
		if err != nil {
			return fmt.Errorf("failed to scan narratives at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			return nil
		}

		for _, n := range page {
			if err := fn(n); err != nil {
				return err
			}
		}

		if len(page) < a.pageSize {
			return nil
		}
	}
}

// duplicateIDs returns the ids that appear more than once, in first
// duplicate-occurrence order.
func duplicateIDs(ids, deduped []string) []string {
	if len(ids) == len(deduped) {
		return nil
	}

	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}

	var out []string
	for _, id := range deduped {
		if counts[id] > 1 {
			out = append(out, id)
		}
	}
	return out
}
