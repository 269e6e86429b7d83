package narratives

import (
	"context"
	"fmt"

	"github.com/avolkhov/newspulse/pkg/models"
)

// Finder locates active narratives anchored on an entity
type Finder interface {
	FindActiveByNucleus(ctx context.Context, entity string) ([]models.Narrative, error)
}

// Matcher links a scored entity to existing narratives, or flags it as
// an emerging signal when it scores well with no cluster to land in.
// The matcher is read-only against the narrative store: it only ever
// produces linkage fields for the signal record.
type Matcher struct {
	finder    Finder
	threshold float64
}

// NewMatcher creates new narrative matcher. threshold is the score an
// unmatched entity must reach to be flagged emerging.
func NewMatcher(finder Finder, threshold float64) *Matcher {
	return &Matcher{finder: finder, threshold: threshold}
}

// Link returns the ids of every active narrative anchored on entity.
// A multi-narrative match is not an error; all ids are recorded and
// downstream consumers decide presentation. With no match, emerging is
// true iff the score qualifies.
func (m *Matcher) Link(ctx context.Context, entity string, score float64) ([]string, bool, error) {
	matches, err := m.finder.FindActiveByNucleus(ctx, entity)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find narratives for %q: %w", entity, err)
	}

	if len(matches) > 0 {
		ids := make([]string, 0, len(matches))
		for _, n := range matches {
			ids = append(ids, n.ID)
		}
		return ids, false, nil
	}

	return []string{}, score >= m.threshold, nil
}
