package catalog

// Genre is one selectable genre filter.
type Genre struct {
	ID   string
	Name string
}

// SortKey is one selectable ordering.
type SortKey struct {
	ID   string
	Name string
}

var genres = []Genre{
	{ID: "action", Name: "Action"},
	{ID: "adventure", Name: "Adventure"},
	{ID: "role-playing-games-rpg", Name: "RPG"},
	{ID: "shooter", Name: "Shooter"},
	{ID: "indie", Name: "Indie"},
	{ID: "strategy", Name: "Strategy"},
}

var sortKeys = []SortKey{
	{ID: SortRelevance, Name: "Relevance"},
	{ID: "-created", Name: "Date added"},
	{ID: "name", Name: "Name"},
	{ID: "-released", Name: "Release date"},
	{ID: "-added", Name: "Popularity"},
	{ID: "-rating", Name: "Average rating"},
	{ID: "-metacritic", Name: "Metacritic"},
}

// Genres returns the genre filters offered to users.
func Genres() []Genre {
	return append([]Genre(nil), genres...)
}

// SortKeys returns the orderings offered to users.
func SortKeys() []SortKey {
	return append([]SortKey(nil), sortKeys...)
}

// IsSortKey reports whether key is one of SortKeys.
func IsSortKey(key string) bool {
	for _, k := range sortKeys {
		if k.ID == key {
			return true
		}
	}
	return false
}
