package listening

import (
	"context"
	"fmt"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
)

// bearerAuthorizer adds an app-only bearer token to API requests
type bearerAuthorizer struct {
	Token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", a.Token))
}

// TwitterSource fetches recent tweets matching a query through the
// Twitter v2 API and maps them into loose raw records shaped like the
// documented normalizer input.
type TwitterSource struct {
	log    *zap.Logger
	client *twitter.Client
}

// NewTwitterSource creates a Twitter source using the given bearer token
func NewTwitterSource(log *zap.Logger, bearerToken string) *TwitterSource {
	return &TwitterSource{
		log: log,
		client: &twitter.Client{
			Authorizer: bearerAuthorizer{Token: bearerToken},
			Client: &http.Client{
				Timeout: 10 * time.Second,
			},
			Host: "https://api.twitter.com",
		},
	}
}

// Name returns the platform name
func (s *TwitterSource) Name() content.Platform {
	return content.PlatformTwitter
}

// Fetch runs a recent search for the query and returns one raw record
// per tweet
func (s *TwitterSource) Fetch(ctx context.Context, query string, maxResults int) ([]map[string]interface{}, error) {
	// API bounds for recent search page size
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	opts := twitter.TweetRecentSearchOpts{
		MaxResults: maxResults,
		TweetFields: []twitter.TweetField{
			twitter.TweetFieldCreatedAt,
			twitter.TweetFieldAuthorID,
			twitter.TweetFieldPublicMetrics,
		},
	}

	resp, err := s.client.TweetRecentSearch(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("twitter recent search: %w", err)
	}

	records := make([]map[string]interface{}, 0, len(resp.Raw.Tweets))
	for _, tweet := range resp.Raw.Tweets {
		record := map[string]interface{}{
			"id":         tweet.ID,
			"text":       tweet.Text,
			"created_at": tweet.CreatedAt,
			"user": map[string]interface{}{
				"id": tweet.AuthorID,
			},
		}

		if tweet.PublicMetrics != nil {
			record["like_count"] = tweet.PublicMetrics.Likes
			record["retweet_count"] = tweet.PublicMetrics.Retweets
			record["reply_count"] = tweet.PublicMetrics.Replies
			record["quote_count"] = tweet.PublicMetrics.Quotes
			record["public_metrics"] = map[string]interface{}{
				"like_count":    tweet.PublicMetrics.Likes,
				"retweet_count": tweet.PublicMetrics.Retweets,
				"reply_count":   tweet.PublicMetrics.Replies,
				"quote_count":   tweet.PublicMetrics.Quotes,
			}
		}

		records = append(records, record)
	}

	s.log.Info("twitter fetch complete",
		zap.String("query", query),
		zap.Int("tweetCount", len(records)),
	)

	return records, nil
}
