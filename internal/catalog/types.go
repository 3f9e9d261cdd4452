package catalog

import "context"

// PlaceholderCover is shown for games the catalog has no artwork for.
const PlaceholderCover = "https://static.vecteezy.com/system/resources/previews/016/916/479/original/placeholder-icon-design-free-vector.jpg"

// SortRelevance leaves ordering to the catalog service.
const SortRelevance = "relevance"

// Label is a named sub-object of a game (tag, genre, platform, rating).
type Label struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// PlatformRef wraps a platform the way the catalog nests it.
type PlatformRef struct {
	Platform Label `json:"platform"`
}

// Item is a read-only projection of one game as returned by the catalog.
// Field names follow the upstream JSON so a stored snapshot keeps its shape.
type Item struct {
	ID              int           `json:"id"`
	Slug            string        `json:"slug,omitempty"`
	Name            string        `json:"name"`
	Released        string        `json:"released,omitempty"`         // YYYY-MM-DD
	BackgroundImage string        `json:"background_image,omitempty"` // cover art
	Metacritic      *int          `json:"metacritic,omitempty"`       // 0-100
	Rating          float64       `json:"rating,omitempty"`           // community rating 0-5
	Tags            []Label       `json:"tags,omitempty"`
	ESRBRating      *Label        `json:"esrb_rating,omitempty"`
	Platforms       []PlatformRef `json:"parent_platforms,omitempty"`
	Genres          []Label       `json:"genres,omitempty"`
}

// CoverURL returns the cover image or the placeholder when there is none.
func (i Item) CoverURL() string {
	if i.BackgroundImage != "" {
		return i.BackgroundImage
	}
	return PlaceholderCover
}

// ReleaseYear returns the leading year of Released, or 0 when unknown.
func (i Item) ReleaseYear() int {
	if len(i.Released) < 4 {
		return 0
	}
	year := 0
	for _, r := range i.Released[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// Query selects one page of catalog results.
type Query struct {
	Page   int    // 1-based
	Search string // empty means no text filter
	Genre  string // genre id or slug, empty means all
	Sort   string // sort key, SortRelevance or empty means service default
}

// Ordering returns the ordering directive to send, or "" to omit it.
func (q Query) Ordering() string {
	if q.Sort == "" || q.Sort == SortRelevance {
		return ""
	}
	return q.Sort
}

// Client fetches pages of games from a catalog service.
type Client interface {
	// Name returns the provider name (e.g., "rawg").
	Name() string
	// FetchPage returns the games for one page, in the service's order.
	FetchPage(ctx context.Context, q Query) ([]Item, error)
	// GetGame fetches a single game by its catalog ID.
	GetGame(ctx context.Context, id int) (*Item, error)
}
