package mentions

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avolkhov/newspulse/pkg/models"
)

// Repository handles database access for entity mentions and the
// articles that own them. It carries no scoring logic: typed reads,
// filtered scans, and the two maintenance updates.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new mentions repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows a mention scan. Zero values mean "no constraint".
type Filter struct {
	Entity      string
	PrimaryOnly bool
	Source      string
	From        time.Time
	To          time.Time
}

// Snapshot is the windowed mention set the metric calculators consume,
// plus the count of orphaned mentions excluded from it.
type Snapshot struct {
	Mentions       []models.EntityMention
	SkippedOrphans int
}

// EntityRef identifies an entity eligible for scoring.
type EntityRef struct {
	Entity     string            `db:"entity"`
	EntityType models.EntityType `db:"entity_type"`
}

// FindMentions returns valid mentions matching the filter, ordered by
// time. A mention is valid only when its owning article still exists;
// orphans never surface through this scan.
func (r *Repository) FindMentions(ctx context.Context, f Filter) ([]models.EntityMention, error) {
	query := `
		SELECT m.id, m.entity, m.entity_type, m.is_primary, m.sentiment,
		       m.source, m.article_id, m.created_at
		FROM entity_mentions m
		JOIN articles a ON a.id = m.article_id
		WHERE 1=1
	`
	args := []interface{}{}

	if f.Entity != "" {
		args = append(args, models.CanonicalEntity(f.Entity))
		query += fmt.Sprintf(" AND LOWER(m.entity) = $%d", len(args))
	}
	if f.PrimaryOnly {
		query += " AND m.is_primary"
	}
	if f.Source != "" {
		args = append(args, f.Source)
		query += fmt.Sprintf(" AND m.source = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND m.created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND m.created_at < $%d", len(args))
	}

	query += " ORDER BY m.created_at"

	var out []models.EntityMention
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query mentions: %w", err)
	}

	for i := range out {
		out[i].EntityType = models.NormalizeEntityType(out[i].EntityType)
	}

	return out, nil
}

// WindowSnapshot fetches the primary mentions of entity within
// [from, to), excluding orphans but counting how many were skipped.
func (r *Repository) WindowSnapshot(ctx context.Context, entity string, from, to time.Time) (*Snapshot, error) {
	query := `
		SELECT m.id, m.entity, m.entity_type, m.is_primary, m.sentiment,
		       m.source, m.article_id, m.created_at,
		       (a.id IS NOT NULL) AS valid
		FROM entity_mentions m
		LEFT JOIN articles a ON a.id = m.article_id
		WHERE LOWER(m.entity) = $1
		  AND m.is_primary
		  AND m.created_at >= $2
		  AND m.created_at < $3
		ORDER BY m.created_at
	`

	rows := []struct {
		models.EntityMention
		Valid bool `db:"valid"`
	}{}

	if err := r.db.SelectContext(ctx, &rows, query, models.CanonicalEntity(entity), from, to); err != nil {
		return nil, fmt.Errorf("failed to query mention window: %w", err)
	}

	snap := &Snapshot{Mentions: make([]models.EntityMention, 0, len(rows))}
	for _, row := range rows {
		if !row.Valid || row.ArticleID == "" {
			snap.SkippedOrphans++
			continue
		}
		m := row.EntityMention
		m.EntityType = models.NormalizeEntityType(m.EntityType)
		snap.Mentions = append(snap.Mentions, m)
	}

	return snap, nil
}

// ActiveEntities returns the distinct entities with at least one valid
// primary mention since the cutoff. Entities with no recent mentions
// age out of the scoring pass through this query.
func (r *Repository) ActiveEntities(ctx context.Context, since time.Time) ([]EntityRef, error) {
	query := `
		SELECT DISTINCT ON (LOWER(m.entity)) LOWER(m.entity) AS entity, m.entity_type
		FROM entity_mentions m
		JOIN articles a ON a.id = m.article_id
		WHERE m.is_primary AND m.created_at >= $1
		ORDER BY LOWER(m.entity), m.created_at DESC
	`

	var out []EntityRef
	if err := r.db.SelectContext(ctx, &out, query, since); err != nil {
		return nil, fmt.Errorf("failed to query active entities: %w", err)
	}

	for i := range out {
		out[i].EntityType = models.NormalizeEntityType(out[i].EntityType)
	}

	return out, nil
}

// ArticleExists checks whether an article is still stored
func (r *Repository) ArticleExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return exists, nil
}

// ExistingArticleIDs returns the subset of ids that still have a stored
// article. Used by the narrative auditor for orphan detection.
func (r *Repository) ExistingArticleIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	var found []string
	err := r.db.SelectContext(ctx, &found,
		`SELECT id FROM articles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing articles: %w", err)
	}

	out := make(map[string]struct{}, len(found))
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// BackfillSources re-copies source onto mentions from the owning
// article. Mention source is a cached copy of the article's source;
// this is its repair procedure. Must run under the maintenance lock.
func (r *Repository) BackfillSources(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entity_mentions m
		SET source = a.source
		FROM articles a
		WHERE a.id = m.article_id
		  AND m.source IS DISTINCT FROM a.source
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill mention sources: %w", err)
	}

	return res.RowsAffected()
}

// RepairTimestamps resets mention created_at to the owning article's
// published_at so backfilled mentions land in the correct scoring
// window. Must run under the maintenance lock.
func (r *Repository) RepairTimestamps(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entity_mentions m
		SET created_at = a.published_at
		FROM articles a
		WHERE a.id = m.article_id
		  AND m.created_at IS DISTINCT FROM a.published_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to repair mention timestamps: %w", err)
	}

	return res.RowsAffected()
}
