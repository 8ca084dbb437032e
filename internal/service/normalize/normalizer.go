package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"trendpulse/internal/domain/content"
)

// Normalizer converts loose platform records into canonical items. It is
// a pure transform apart from id and timestamp generation, so any number
// of goroutines may share one instance.
type Normalizer struct {
	extractor content.Extractor
}

// NewNormalizer creates a normalizer using the given entity extractor
func NewNormalizer(extractor content.Extractor) *Normalizer {
	return &Normalizer{
		extractor: extractor,
	}
}

// Normalize maps one raw record to a canonical Item. Missing or oddly
// shaped fields degrade to defaults; a malformed record still yields a
// valid item and never fails the pipeline.
func (n *Normalizer) Normalize(platform content.Platform, raw map[string]interface{}) content.Item {
	text := getString(raw, "text", "")

	return content.Item{
		ID:        newItemID(),
		Text:      text,
		AuthorID:  getString(getMap(raw, "user"), "id", "unknown"),
		Platform:  platform,
		CreatedAt: getString(raw, "created_at", time.Now().UTC().Format(time.RFC3339)),
		FeedType:  "post",
		Metrics: content.Metrics{
			LikeCount:     getCount(raw, "like_count"),
			ShareCount:    getCount(raw, "retweet_count"),
			ReplyCount:    getCount(raw, "reply_count"),
			QuoteCount:    getCount(raw, "quote_count"),
			BookmarkCount: getCount(raw, "bookmark_count"),
		},
		Entities: n.extractor.Extract(text),
		PlatformData: map[string]interface{}{
			"native_id":      raw["id"],
			"native_metrics": raw["public_metrics"],
		},
	}
}

// newItemID returns a fresh 16-character identifier. 64 bits of the
// underlying UUID are kept, which is enough entropy for collision
// probability to be practically zero.
func newItemID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Accessor helpers for loosely structured records. Each returns its
// default when the key is missing or holds an unexpected type.

func getString(m map[string]interface{}, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func getCount(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}

	var count int
	switch v := m[key].(type) {
	case int:
		count = v
	case int64:
		count = int(v)
	case float64:
		count = int(v)
	}

	if count < 0 {
		return 0
	}
	return count
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
