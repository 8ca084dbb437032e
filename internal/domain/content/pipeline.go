package content

// Normalizer maps one platform-specific raw record to a canonical Item.
// Implementations never fail: malformed or partial records degrade to an
// Item with defaulted fields.
type Normalizer interface {
	Normalize(platform Platform, raw map[string]interface{}) Item
}

// Extractor pulls hashtags, mentions and links out of free text
type Extractor interface {
	Extract(text string) Entities
}

// Store persists raw payloads keyed by a deterministic content id
type Store interface {
	// Put writes an envelope for the payload and returns its id. Storing
	// a payload that carries the same native id again overwrites the
	// existing envelope and returns the same id.
	Put(platform Platform, payload map[string]interface{}) (string, error)

	// Get returns the payload stored under id. Absence is reported via
	// the boolean, never as an error.
	Get(id string) (map[string]interface{}, bool, error)

	// Purge removes every envelope older than the retention window and
	// returns how many were removed.
	Purge(retentionDays int) (int, error)
}
