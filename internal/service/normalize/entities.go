package normalize

import (
	"regexp"

	"trendpulse/internal/domain/content"
)

// EntityExtractor pulls hashtags, mentions and URLs out of free text.
// Patterns are compiled once at construction and reused for every call.
type EntityExtractor struct {
	hashtagPattern *regexp.Regexp
	mentionPattern *regexp.Regexp
	urlPattern     *regexp.Regexp
}

// NewEntityExtractor creates an extractor with its patterns precompiled
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{
		hashtagPattern: regexp.MustCompile(`#(\w+)`),
		mentionPattern: regexp.MustCompile(`@(\w+)`),
		// Conservative URL match: ends at the first character outside
		// the allowed set, so query strings and escapes are cut off.
		urlPattern: regexp.MustCompile(`https?://[\w$@.&+/-]+`),
	}
}

// Extract returns all entity occurrences in text, in left-to-right order
// of appearance. Duplicates are kept: a tag used twice yields two
// entries. Empty input yields empty collections, never an error.
func (e *EntityExtractor) Extract(text string) content.Entities {
	entities := content.Entities{
		Hashtags: []string{},
		Mentions: []string{},
		URLs:     []string{},
	}

	if text == "" {
		return entities
	}

	for _, match := range e.hashtagPattern.FindAllStringSubmatch(text, -1) {
		entities.Hashtags = append(entities.Hashtags, match[1])
	}

	for _, match := range e.mentionPattern.FindAllStringSubmatch(text, -1) {
		entities.Mentions = append(entities.Mentions, match[1])
	}

	entities.URLs = append(entities.URLs, e.urlPattern.FindAllString(text, -1)...)

	return entities
}
