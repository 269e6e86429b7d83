package signals

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avolkhov/newspulse/pkg/models"
)

// Repository handles database operations for signal scores
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new signals repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Upsert replaces the signal record for the entity. Whole-record
// replace, not a field merge: two concurrent scoring runs for the same
// entity can never interleave into a mixed composite.
func (r *Repository) Upsert(ctx context.Context, s *models.SignalScore) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signal_scores (
			entity, entity_type, score, score_24h, score_7d, score_30d,
			velocity, source_count, narrative_ids, is_emerging, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (entity) DO UPDATE SET
			entity_type   = EXCLUDED.entity_type,
			score         = EXCLUDED.score,
			score_24h     = EXCLUDED.score_24h,
			score_7d      = EXCLUDED.score_7d,
			score_30d     = EXCLUDED.score_30d,
			velocity      = EXCLUDED.velocity,
			source_count  = EXCLUDED.source_count,
			narrative_ids = EXCLUDED.narrative_ids,
			is_emerging   = EXCLUDED.is_emerging,
			scored_at     = EXCLUDED.scored_at
	`,
		s.Entity,
		s.EntityType,
		s.Score,
		s.Score24h,
		s.Score7d,
		s.Score30d,
		s.Velocity,
		s.SourceCount,
		s.NarrativeIDs,
		s.IsEmerging,
		s.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert signal score: %w", err)
	}

	return nil
}

// GetTrendingSignals returns signal records ordered by descending
// score, with linked narrative themes joined in for display. This is
// the query surface the API layer consumes.
func (r *Repository) GetTrendingSignals(ctx context.Context, limit int, minScore float64, entityType *models.EntityType) ([]models.TrendingSignal, error) {
	query := `
		SELECT entity, entity_type, score, score_24h, score_7d, score_30d,
		       velocity, source_count, narrative_ids, is_emerging, scored_at
		FROM signal_scores
		WHERE score >= $1
	`
	args := []interface{}{minScore}

	if entityType != nil {
		args = append(args, models.NormalizeEntityType(*entityType))
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY score DESC LIMIT $%d", len(args))

	var scores []models.SignalScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query trending signals: %w", err)
	}

	themes, err := r.narrativeThemes(ctx, scores)
	if err != nil {
		return nil, err
	}

	out := make([]models.TrendingSignal, 0, len(scores))
	for _, s := range scores {
		ts := models.TrendingSignal{SignalScore: s}
		for _, id := range s.NarrativeIDs {
			if theme, ok := themes[id]; ok {
				ts.NarrativeTitles = append(ts.NarrativeTitles, theme)
			}
		}
		out = append(out, ts)
	}

	return out, nil
}

// narrativeThemes resolves the themes of every narrative referenced by
// the given scores in one query.
func (r *Repository) narrativeThemes(ctx context.Context, scores []models.SignalScore) (map[string]string, error) {
	idSet := make(map[string]struct{})
	for _, s := range scores {
		for _, id := range s.NarrativeIDs {
			idSet[id] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return map[string]string{}, nil
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	rows := []struct {
		ID    string `db:"id"`
		Theme string `db:"theme"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, theme FROM narratives WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query narrative themes: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Theme
	}
	return out, nil
}
