package models

import (
	"strings"
	"time"
)

// Article represents a stored news article. Articles are written by the
// external ingestion pipeline; this service only reads them.
type Article struct {
	ID          string    `json:"id" db:"id"`
	Source      string    `json:"source" db:"source"`
	Title       string    `json:"title" db:"title"`
	URL         string    `json:"url" db:"url"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EntityMention is one occurrence of a named entity in one article.
//
// Source and CreatedAt are denormalized copies of the owning article's
// source and published_at. They are cached values with a repair
// procedure (internal/maintenance), not independent truth.
type EntityMention struct {
	ID         string     `json:"id" db:"id"`
	Entity     string     `json:"entity" db:"entity"`
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	IsPrimary  bool       `json:"is_primary" db:"is_primary"`
	Sentiment  float64    `json:"sentiment" db:"sentiment"`
	Source     string     `json:"source" db:"source"`
	ArticleID  string     `json:"article_id" db:"article_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// CanonicalEntity lower-cases and trims an entity name for use as an
// identity key. Mention rows store the display form; all matching and
// grouping goes through this.
func CanonicalEntity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
