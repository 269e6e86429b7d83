package models

import (
	"time"

	"github.com/lib/pq"
)

// NarrativeState is the lifecycle state of a narrative cluster.
// Merged and archived are terminal; only active narratives accept new
// signal linkage.
type NarrativeState string

const (
	NarrativeActive   NarrativeState = "active"
	NarrativeMerged   NarrativeState = "merged"
	NarrativeArchived NarrativeState = "archived"
)

// Narrative is a cluster of articles sharing a theme. Clustering and
// merging are owned by an external job; this service reads narratives
// for signal linkage and repairs the article-set bookkeeping.
//
// ArticleCount is a cached cardinality of ArticleIDs and must equal the
// deduplicated length of ArticleIDs after every mutation. The auditor
// exists because this has historically drifted.
type Narrative struct {
	ID            string         `json:"id" db:"id"`
	Theme         string         `json:"theme" db:"theme"`
	NucleusEntity string         `json:"nucleus_entity" db:"nucleus_entity"`
	ArticleIDs    pq.StringArray `json:"article_ids" db:"article_ids"`
	ArticleCount  int            `json:"article_count" db:"article_count"`
	State         NarrativeState `json:"lifecycle_state" db:"lifecycle_state"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// DedupedArticleIDs returns ArticleIDs with duplicates removed,
// preserving first-occurrence order.
func (n *Narrative) DedupedArticleIDs() []string {
	seen := make(map[string]struct{}, len(n.ArticleIDs))
	out := make([]string, 0, len(n.ArticleIDs))
	for _, id := range n.ArticleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
