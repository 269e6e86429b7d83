package narratives

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avolkhov/newspulse/pkg/models"
)

// Repository handles database operations for narratives. Narrative
// creation and merging belong to the external clustering job; this
// repository reads clusters and carries the auditor's repair write.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new narratives repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByNucleus returns the active narratives anchored on the
// given entity, matched case-insensitively. Merged and archived
// narratives never match.
func (r *Repository) FindActiveByNucleus(ctx context.Context, entity string) ([]models.Narrative, error) {
	var out []models.Narrative
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, theme, nucleus_entity, article_ids, article_count,
		       lifecycle_state, created_at, updated_at
		FROM narratives
		WHERE lifecycle_state = $1
		  AND LOWER(nucleus_entity) = $2
		ORDER BY created_at
	`, models.NarrativeActive, models.CanonicalEntity(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to query narratives by nucleus: %w", err)
	}

	return out, nil
}

// ListPage returns one page of narratives ordered by id, for bounded
// full scans.
func (r *Repository) ListPage(ctx context.Context, offset, limit int) ([]models.Narrative, error) {
	var out []models.Narrative
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, theme, nucleus_entity, article_ids, article_count,
		       lifecycle_state, created_at, updated_at
		FROM narratives
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list narratives: %w", err)
	}

	return out, nil
}

// UpdateArticleSet replaces a narrative's article id set and cached
// count in one statement. Readers never observe a deduplicated id set
// with a stale count or vice versa.
func (r *Repository) UpdateArticleSet(ctx context.Context, id string, articleIDs []string, count int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE narratives
		SET article_ids = $2, article_count = $3, updated_at = NOW()
		WHERE id = $1
	`, id, pq.Array(articleIDs), count)
	if err != nil {
		return fmt.Errorf("failed to update narrative article set: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("narrative %s not found", id)
	}

	return nil
}
