package trend

import (
	"trendpulse/internal/domain/content"
)

// Detector consumes batches of canonical items and emits surge signals.
// Implementations are stateful: each call updates the baseline the next
// call is compared against, so callers must serialize access to a single
// instance.
type Detector interface {
	Detect(items []content.Item) []Signal
}
