package mentions

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/avolkhov/newspulse/pkg/models"
)

// testRepo connects to the test database or skips. Requires the schema
// from migrations/ to be applied.
func testRepo(t *testing.T) (*Repository, *sqlx.DB) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	t.Cleanup(func() {
		db.MustExec(`DELETE FROM entity_mentions WHERE id LIKE 'tm-%'`)
		db.MustExec(`DELETE FROM articles WHERE id LIKE 'ta-%'`)
		db.Close()
	})

	return NewRepository(db), db
}

func seedArticle(t *testing.T, db *sqlx.DB, id, source string, publishedAt time.Time) {
	t.Helper()
	db.MustExec(`
		INSERT INTO articles (id, source, title, url, published_at)
		VALUES ($1, $2, '', '', $3)
	`, id, source, publishedAt)
}

func seedMention(t *testing.T, db *sqlx.DB, id, entity, entityType, source, articleID string, primary bool, at time.Time) {
	t.Helper()
	db.MustExec(`
		INSERT INTO entity_mentions (id, entity, entity_type, is_primary, sentiment, source, article_id, created_at)
		VALUES ($1, $2, $3, $4, 0.5, $5, $6, $7)
	`, id, entity, entityType, primary, source, articleID, at)
}

func TestRepository_FindMentions(t *testing.T) {
	repo, db := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedArticle(t, db, "ta-1", "coindesk", now)
	seedArticle(t, db, "ta-2", "decrypt", now)

	seedMention(t, db, "tm-1", "Bitcoin", "cryptocurrency", "coindesk", "ta-1", true, now.Add(-time.Hour))
	seedMention(t, db, "tm-2", "bitcoin", "cryptocurrency", "decrypt", "ta-2", true, now.Add(-2*time.Hour))
	seedMention(t, db, "tm-3", "Bitcoin", "cryptocurrency", "coindesk", "ta-1", false, now.Add(-time.Hour))
	seedMention(t, db, "tm-4", "Ethereum", "cryptocurrency", "coindesk", "ta-1", true, now.Add(-time.Hour))
	// Orphan: article never stored
	seedMention(t, db, "tm-5", "Bitcoin", "cryptocurrency", "theblock", "ta-gone", true, now.Add(-time.Hour))

	t.Run("entity filter is case-insensitive and excludes orphans", func(t *testing.T) {
		got, err := repo.FindMentions(ctx, Filter{Entity: "BITCOIN"})
		if err != nil {
			t.Fatalf("FindMentions failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 mentions (orphan excluded), got %d", len(got))
		}
	})

	t.Run("primary only", func(t *testing.T) {
		got, err := repo.FindMentions(ctx, Filter{Entity: "Bitcoin", PrimaryOnly: true})
		if err != nil {
			t.Fatalf("FindMentions failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 primary mentions, got %d", len(got))
		}
	})

	t.Run("source filter", func(t *testing.T) {
		got, err := repo.FindMentions(ctx, Filter{Entity: "Bitcoin", Source: "decrypt"})
		if err != nil {
			t.Fatalf("FindMentions failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "tm-2" {
			t.Fatalf("Expected only tm-2, got %+v", got)
		}
	})

	t.Run("time range is half-open", func(t *testing.T) {
		got, err := repo.FindMentions(ctx, Filter{
			Entity: "Bitcoin",
			From:   now.Add(-90 * time.Minute),
			To:     now,
		})
		if err != nil {
			t.Fatalf("FindMentions failed: %v", err)
		}
		for _, m := range got {
			if m.ID == "tm-2" {
				t.Error("tm-2 is outside the window and must not match")
			}
		}
	})
}

func TestRepository_WindowSnapshotCountsOrphans(t *testing.T) {
	repo, db := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedArticle(t, db, "ta-1", "coindesk", now)
	seedMention(t, db, "tm-1", "Solana", "blockchain", "coindesk", "ta-1", true, now.Add(-time.Hour))
	seedMention(t, db, "tm-2", "Solana", "blockchain", "theblock", "ta-gone", true, now.Add(-time.Hour))

	snap, err := repo.WindowSnapshot(ctx, "solana", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("WindowSnapshot failed: %v", err)
	}

	if len(snap.Mentions) != 1 {
		t.Errorf("Expected 1 valid mention, got %d", len(snap.Mentions))
	}
	if snap.SkippedOrphans != 1 {
		t.Errorf("Expected 1 skipped orphan, got %d", snap.SkippedOrphans)
	}
}

func TestRepository_ActiveEntities(t *testing.T) {
	repo, db := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedArticle(t, db, "ta-1", "coindesk", now)
	seedMention(t, db, "tm-1", "Bitcoin", "cryptocurrency", "coindesk", "ta-1", true, now.Add(-time.Hour))
	seedMention(t, db, "tm-2", "BITCOIN", "cryptocurrency", "coindesk", "ta-1", true, now.Add(-2*time.Hour))
	// Legacy vocabulary value normalized on read
	seedMention(t, db, "tm-3", "Uniswap", "project", "coindesk", "ta-1", true, now.Add(-time.Hour))
	// Too old for the cutoff
	seedMention(t, db, "tm-4", "Dogecoin", "cryptocurrency", "coindesk", "ta-1", true, now.Add(-40*24*time.Hour))

	refs, err := repo.ActiveEntities(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("ActiveEntities failed: %v", err)
	}

	byEntity := make(map[string]models.EntityType, len(refs))
	for _, ref := range refs {
		byEntity[ref.Entity] = ref.EntityType
	}

	if _, ok := byEntity["bitcoin"]; !ok {
		t.Error("Expected bitcoin among active entities")
	}
	if got := byEntity["uniswap"]; got != models.EntityTypeProtocol {
		t.Errorf("Expected legacy 'project' normalized to protocol, got %q", got)
	}
	if _, ok := byEntity["dogecoin"]; ok {
		t.Error("Entity with only stale mentions must age out")
	}

	count := 0
	for _, ref := range refs {
		if ref.Entity == "bitcoin" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Case variants must collapse to one entry, got %d", count)
	}
}

func TestRepository_ArticleExists(t *testing.T) {
	repo, db := testRepo(t)
	ctx := context.Background()

	seedArticle(t, db, "ta-1", "coindesk", time.Now())

	exists, err := repo.ArticleExists(ctx, "ta-1")
	if err != nil {
		t.Fatalf("ArticleExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected ta-1 to exist")
	}

	exists, err = repo.ArticleExists(ctx, "ta-nope")
	if err != nil {
		t.Fatalf("ArticleExists failed: %v", err)
	}
	if exists {
		t.Error("Expected ta-nope to not exist")
	}
}

func TestRepository_MaintenanceRepairs(t *testing.T) {
	repo, db := testRepo(t)
	ctx := context.Background()
	published := time.Now().UTC().Truncate(time.Second).Add(-6 * time.Hour)

	seedArticle(t, db, "ta-1", "coindesk", published)
	// Drifted copies: wrong source, insertion-time timestamp
	seedMention(t, db, "tm-1", "Bitcoin", "cryptocurrency", "stale-source", "ta-1", true, published.Add(3*time.Hour))
	// Already correct
	seedMention(t, db, "tm-2", "Bitcoin", "cryptocurrency", "coindesk", "ta-1", true, published)

	affected, err := repo.BackfillSources(ctx)
	if err != nil {
		t.Fatalf("BackfillSources failed: %v", err)
	}
	if affected < 1 {
		t.Errorf("Expected at least the drifted row updated, got %d", affected)
	}

	affected, err = repo.RepairTimestamps(ctx)
	if err != nil {
		t.Fatalf("RepairTimestamps failed: %v", err)
	}
	if affected < 1 {
		t.Errorf("Expected at least the drifted row updated, got %d", affected)
	}

	var m models.EntityMention
	if err := db.Get(&m, `SELECT id, entity, entity_type, is_primary, sentiment, source, article_id, created_at FROM entity_mentions WHERE id = 'tm-1'`); err != nil {
		t.Fatalf("failed to read repaired mention: %v", err)
	}
	if m.Source != "coindesk" {
		t.Errorf("Expected source backfilled to coindesk, got %q", m.Source)
	}
	if !m.CreatedAt.Equal(published) {
		t.Errorf("Expected created_at reset to published_at %v, got %v", published, m.CreatedAt)
	}

	// Second pass finds nothing to do
	affected, err = repo.BackfillSources(ctx)
	if err != nil {
		t.Fatalf("BackfillSources failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("Repair must be idempotent, second pass touched %d rows", affected)
	}
}
