package models

import "testing"

func TestNarrative_DedupedArticleIDs(t *testing.T) {
	n := &Narrative{ArticleIDs: []string{"a1", "a2", "a2", "a3", "a1"}}

	got := n.DedupedArticleIDs()

	expected := []string{"a1", "a2", "a3"}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d ids, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Position %d: expected %q, got %q (first-occurrence order must be preserved)",
				i, expected[i], got[i])
		}
	}
}
