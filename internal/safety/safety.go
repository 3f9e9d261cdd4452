// Package safety screens catalog results for mature content before they are shown.
package safety

import (
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/metrics"
)

// AdultsOnly is the normalized slug of the adults-only content rating.
const AdultsOnly = "adults-only"

// BlockedTags lists the tag slugs that remove a game from results.
var BlockedTags = []string{"nudity", "sexual-content", "erotic", "hentai", "nsfw", "furry"}

var defaultFilter = NewFilter()

// Filter removes blocked games using the default blocklist.
func Filter(items []catalog.Item) []catalog.Item {
	return defaultFilter.Apply(items)
}

// ContentFilter drops games tagged with a blocked slug or rated adults-only.
// It is immutable once built.
type ContentFilter struct {
	blocked map[string]struct{}
}

// NewFilter builds a filter from BlockedTags plus any extra slugs.
func NewFilter(extra ...string) *ContentFilter {
	f := &ContentFilter{blocked: make(map[string]struct{}, len(BlockedTags)+len(extra))}
	for _, tag := range BlockedTags {
		f.blocked[Normalize(tag)] = struct{}{}
	}
	for _, tag := range extra {
		if n := Normalize(tag); n != "" {
			f.blocked[n] = struct{}{}
		}
	}
	return f
}

// Apply returns the allowed items in their original order. The input is not modified.
func (f *ContentFilter) Apply(items []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if reason := f.Reason(item); reason != "" {
			metrics.SafetyDropped.WithLabelValues(reason).Inc()
			continue
		}
		out = append(out, item)
	}
	return out
}

// Allowed reports whether item passes the filter.
func (f *ContentFilter) Allowed(item catalog.Item) bool {
	return f.Reason(item) == ""
}

// Reason returns "tag" or "rating" for a blocked item and "" otherwise.
func (f *ContentFilter) Reason(item catalog.Item) string {
	for _, tag := range item.Tags {
		if _, ok := f.blocked[Normalize(tag.Slug)]; ok {
			return "tag"
		}
		if tag.Slug == "" {
			if _, ok := f.blocked[Normalize(tag.Name)]; ok {
				return "tag"
			}
		}
	}
	if item.ESRBRating != nil {
		if Normalize(item.ESRBRating.Slug) == AdultsOnly || Normalize(item.ESRBRating.Name) == AdultsOnly {
			return "rating"
		}
	}
	return ""
}

// Normalize folds a tag or rating into slug form: transliterated, lower case,
// words joined by single hyphens.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	}), "-")
}
