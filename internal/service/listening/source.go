package listening

import (
	"context"

	"trendpulse/internal/domain/content"
)

// Source supplies raw platform records on demand. Implementations are
// opaque upstreams: they may fail outright or return partial batches,
// and the pipeline treats whatever they return as loose, schemaless
// payloads.
type Source interface {
	// Name returns the platform this source fetches from
	Name() content.Platform

	// Fetch returns up to maxResults raw records matching the query
	Fetch(ctx context.Context, query string, maxResults int) ([]map[string]interface{}, error)
}
