package content

import (
	"time"
)

// Platform identifies the social platform a record came from
type Platform string

// Supported platforms
const (
	PlatformTwitter Platform = "twitter"
	PlatformTikTok  Platform = "tiktok"
	PlatformReddit  Platform = "reddit"
)

// Metrics holds engagement counters for a content item. All counters are
// non-negative and default to zero when the upstream record omits them.
type Metrics struct {
	LikeCount     int `json:"like_count"`
	ShareCount    int `json:"share_count"`
	ReplyCount    int `json:"reply_count"`
	QuoteCount    int `json:"quote_count"`
	BookmarkCount int `json:"bookmark_count"`
}

// Entities holds hashtags, mentions and URLs extracted from item text,
// in order of first appearance and without deduplication.
type Entities struct {
	Hashtags []string `json:"hashtags"`
	Mentions []string `json:"mentions"`
	URLs     []string `json:"urls"`
}

// Item is the canonical, platform-agnostic content unit. The ID is
// assigned once at normalization time and never changes; Entities are
// derived from Text and nothing else.
type Item struct {
	ID           string                 `json:"id"`
	Text         string                 `json:"text"`
	AuthorID     string                 `json:"author_id"`
	Platform     Platform               `json:"platform"`
	CreatedAt    string                 `json:"created_at"`
	FeedType     string                 `json:"feed_type"`
	Metrics      Metrics                `json:"metrics"`
	Entities     Entities               `json:"entities"`
	PlatformData map[string]interface{} `json:"platform_data,omitempty"`
}

// RawRecord is the persisted envelope for an unprocessed platform
// payload. Records are replaced on put and removed by retention purge,
// never mutated in place.
type RawRecord struct {
	ID        string                 `json:"id"`
	Platform  Platform               `json:"platform"`
	Payload   map[string]interface{} `json:"payload"`
	ScrapedAt time.Time              `json:"scraped_at"`
}
