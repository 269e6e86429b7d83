package signals

import (
	"github.com/avolkhov/newspulse/pkg/models"
)

// Pure metric calculators. Each works over an already-fetched mention
// snapshot, so identical input always produces identical output.

// Velocity computes the rate-of-change of mention activity between two
// equal-length windows. With no prior-window baseline there is nothing
// to normalize against and the result is 0, never an error.
func Velocity(currentCount, priorCount int) float64 {
	if priorCount <= 0 {
		return 0
	}
	return float64(currentCount) / float64(priorCount)
}

// SourceDiversity counts distinct sources among the given mentions.
// Mentions with an empty source are ignored rather than counted as one
// shared phantom source.
func SourceDiversity(mentions []models.EntityMention) int {
	seen := make(map[string]struct{}, len(mentions))
	for _, m := range mentions {
		if m.Source == "" {
			continue
		}
		seen[m.Source] = struct{}{}
	}
	return len(seen)
}

// ClampSourceCount bounds a raw distinct-source count to [1, max].
// Past max, additional sources stop adding diversity value; that is a
// deliberate saturation policy. Zero stays zero: an entity with no
// mentions gets no diversity credit.
func ClampSourceCount(raw, max int) int {
	if raw <= 0 {
		return 0
	}
	if raw > max {
		return max
	}
	return raw
}

// SentimentSummary is a window-level sentiment aggregate.
type SentimentSummary struct {
	Mean  float64
	Count int
}

// Sentiment aggregates mention-level sentiment into a window summary.
// No mentions yields a neutral summary, never an error.
func Sentiment(mentions []models.EntityMention) SentimentSummary {
	if len(mentions) == 0 {
		return SentimentSummary{}
	}

	var sum float64
	for _, m := range mentions {
		sum += m.Sentiment
	}

	return SentimentSummary{
		Mean:  sum / float64(len(mentions)),
		Count: len(mentions),
	}
}
