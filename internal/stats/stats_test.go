package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/library"
)

func entry(status library.Status, rating *float64, released string, meta int, platforms []string, genres ...string) library.Entry {
	g := catalog.Item{ID: len(released) + meta, Released: released}
	if meta > 0 {
		g.Metacritic = &meta
	}
	for _, p := range platforms {
		g.Platforms = append(g.Platforms, catalog.PlatformRef{Platform: catalog.Label{Name: p}})
	}
	for _, name := range genres {
		g.Genres = append(g.Genres, catalog.Label{Name: name})
	}
	return library.Entry{Game: g, Status: status, Rating: rating}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.CompletionRate)
	assert.Empty(t, s.Platforms)
	assert.Empty(t, s.Decades)
	assert.Len(t, s.ByStatus, 4)
	assert.Equal(t, 0.0, s.AvgMetacritic[library.StatusPlayed])
}

func TestCompute(t *testing.T) {
	r := library.Rating
	entries := []library.Entry{
		entry(library.StatusPlayed, r(9.5), "2017-03-02", 97, []string{"Nintendo"}, "Action", "Adventure"),
		entry(library.StatusPlayed, r(10), "1998-11-21", 99, []string{"Nintendo"}, "Adventure"),
		entry(library.StatusPlaying, r(4), "2020-09-17", 93, []string{"PC", "PlayStation"}, "Action", "Indie"),
		entry(library.StatusBacklog, nil, "", 0, nil),
		entry(library.StatusDropped, r(1.9), "2011-11-11", 0, []string{"PC"}, "RPG"),
	}

	s := Compute(entries)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.ByStatus[library.StatusPlayed])
	assert.Equal(t, 1, s.ByStatus[library.StatusDropped])
	assert.InDelta(t, 0.4, s.CompletionRate, 1e-9)

	// unrated and 1.9 land in 0-2, 4 in 4-6, 9.5 and 10 in 8-10
	assert.Equal(t, [5]int{2, 0, 1, 0, 2}, s.Ratings)

	assert.Equal(t, []Count{{"Nintendo", 2}, {"PC", 2}, {"PlayStation", 1}}, s.Platforms)
	assert.Equal(t, []Count{{"Action", 2}, {"Adventure", 2}, {"Indie", 1}, {"RPG", 1}}, s.Genres)
	assert.Equal(t, []Count{{"1990s", 1}, {"2010s", 2}, {"2020s", 1}}, s.Decades)

	assert.InDelta(t, 98.0, s.AvgMetacritic[library.StatusPlayed], 1e-9)
	assert.InDelta(t, 93.0, s.AvgMetacritic[library.StatusPlaying], 1e-9)
	assert.Zero(t, s.AvgMetacritic[library.StatusBacklog])
	assert.Zero(t, s.AvgMetacritic[library.StatusDropped])
}

func TestCompute_TopFiveByCountThenName(t *testing.T) {
	var entries []library.Entry
	for _, g := range []string{"F", "E", "D", "C", "B", "A", "A"} {
		entries = append(entries, entry(library.StatusBacklog, nil, "", 0, nil, g))
	}

	s := Compute(entries)
	assert.Equal(t, []Count{{"A", 2}, {"B", 1}, {"C", 1}, {"D", 1}, {"E", 1}}, s.Genres)
}

func TestRatingBucket(t *testing.T) {
	r := library.Rating
	assert.Equal(t, 0, ratingBucket(nil))
	assert.Equal(t, 0, ratingBucket(r(0)))
	assert.Equal(t, 1, ratingBucket(r(2)))
	assert.Equal(t, 3, ratingBucket(r(7.99)))
	assert.Equal(t, 4, ratingBucket(r(8)))
	assert.Equal(t, 4, ratingBucket(r(10)))
}
