package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpulse/internal/domain/content"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(NewEntityExtractor())
}

func TestNormalize_EmptyRecordDefaults(t *testing.T) {
	n := newTestNormalizer()

	item := n.Normalize(content.PlatformTwitter, map[string]interface{}{})

	assert.Equal(t, "", item.Text)
	assert.Equal(t, "unknown", item.AuthorID)
	assert.Equal(t, content.PlatformTwitter, item.Platform)
	assert.Equal(t, "post", item.FeedType)
	assert.Equal(t, content.Metrics{}, item.Metrics)
	assert.Empty(t, item.Entities.Hashtags)
	assert.Empty(t, item.Entities.Mentions)
	assert.Empty(t, item.Entities.URLs)

	require.Len(t, item.ID, 16)
	assert.True(t, strings.HasSuffix(item.CreatedAt, "Z"))
}

func TestNormalize_CopiesFields(t *testing.T) {
	n := newTestNormalizer()

	raw := map[string]interface{}{
		"id":         "12345",
		"text":       "Big launch day #release by @team",
		"created_at": "2026-08-01T10:00:00Z",
		"user": map[string]interface{}{
			"id": "author-9",
		},
		"like_count":     float64(12),
		"retweet_count":  3,
		"reply_count":    float64(2),
		"quote_count":    1,
		"bookmark_count": float64(7),
	}

	item := n.Normalize(content.PlatformTwitter, raw)

	assert.Equal(t, "Big launch day #release by @team", item.Text)
	assert.Equal(t, "author-9", item.AuthorID)
	assert.Equal(t, "2026-08-01T10:00:00Z", item.CreatedAt)
	assert.Equal(t, content.Metrics{
		LikeCount:     12,
		ShareCount:    3,
		ReplyCount:    2,
		QuoteCount:    1,
		BookmarkCount: 7,
	}, item.Metrics)
	assert.Equal(t, []string{"release"}, item.Entities.Hashtags)
	assert.Equal(t, []string{"team"}, item.Entities.Mentions)
	assert.Equal(t, "12345", item.PlatformData["native_id"])
}

func TestNormalize_FreshIDPerCall(t *testing.T) {
	n := newTestNormalizer()
	raw := map[string]interface{}{"id": "same-native-id", "text": "hello"}

	first := n.Normalize(content.PlatformTwitter, raw)
	second := n.Normalize(content.PlatformTwitter, raw)

	// The canonical id is generated, not derived from the source id
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, first.ID, 16)
	assert.Len(t, second.ID, 16)
}

func TestNormalize_OddlyShapedFields(t *testing.T) {
	n := newTestNormalizer()

	raw := map[string]interface{}{
		"text":       12345,
		"user":       "not-a-map",
		"like_count": "many",
		"created_at": nil,
	}

	item := n.Normalize(content.PlatformTikTok, raw)

	assert.Equal(t, "", item.Text)
	assert.Equal(t, "unknown", item.AuthorID)
	assert.Equal(t, 0, item.Metrics.LikeCount)
	assert.True(t, strings.HasSuffix(item.CreatedAt, "Z"))
}

func TestNormalize_NegativeCountsClamped(t *testing.T) {
	n := newTestNormalizer()

	item := n.Normalize(content.PlatformTwitter, map[string]interface{}{
		"like_count": float64(-5),
	})

	assert.Equal(t, 0, item.Metrics.LikeCount)
}
