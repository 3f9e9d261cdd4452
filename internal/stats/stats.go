// Package stats summarizes a library for the dashboard.
package stats

import (
	"math"
	"sort"
	"strconv"

	"github.com/ryanm101/gameshelf/internal/library"
)

// TopN is how many platforms and genres are reported.
const TopN = 5

// RatingLabels names the rating histogram buckets.
var RatingLabels = [5]string{"0-2", "2-4", "4-6", "6-8", "8-10"}

// Count is a label with its number of games.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary contains library statistics.
type Summary struct {
	Total          int                        `json:"total"`
	ByStatus       map[library.Status]int     `json:"by_status"`
	CompletionRate float64                    `json:"completion_rate"`
	Ratings        [5]int                     `json:"ratings"`
	Platforms      []Count                    `json:"platforms"`
	Genres         []Count                    `json:"genres"`
	Decades        []Count                    `json:"decades"`
	AvgMetacritic  map[library.Status]float64 `json:"avg_metacritic"`
}

// Compute builds a Summary from entries.
func Compute(entries []library.Entry) Summary {
	s := Summary{
		Total:         len(entries),
		ByStatus:      make(map[library.Status]int, len(library.Statuses)),
		AvgMetacritic: make(map[library.Status]float64, len(library.Statuses)),
	}
	for _, st := range library.Statuses {
		s.ByStatus[st] = 0
	}

	platforms := map[string]int{}
	genres := map[string]int{}
	decades := map[int]int{}
	metaSum := map[library.Status]int{}
	metaN := map[library.Status]int{}

	for _, e := range entries {
		s.ByStatus[e.Status]++
		s.Ratings[ratingBucket(e.Rating)]++

		for _, p := range e.Game.Platforms {
			if p.Platform.Name != "" {
				platforms[p.Platform.Name]++
			}
		}
		for _, g := range e.Game.Genres {
			if g.Name != "" {
				genres[g.Name]++
			}
		}
		if year := e.Game.ReleaseYear(); year > 0 {
			decades[year/10*10]++
		}
		if m := e.Game.Metacritic; m != nil && *m > 0 {
			metaSum[e.Status] += *m
			metaN[e.Status]++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = float64(s.ByStatus[library.StatusPlayed]) / float64(s.Total)
	}
	for _, st := range library.Statuses {
		if metaN[st] > 0 {
			s.AvgMetacritic[st] = float64(metaSum[st]) / float64(metaN[st])
		} else {
			s.AvgMetacritic[st] = 0
		}
	}

	s.Platforms = top(platforms, TopN)
	s.Genres = top(genres, TopN)
	keys := make([]int, 0, len(decades))
	for d := range decades {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	s.Decades = make([]Count, 0, len(keys))
	for _, d := range keys {
		s.Decades = append(s.Decades, Count{Name: strconv.Itoa(d) + "s", Count: decades[d]})
	}

	return s
}

// ratingBucket maps a 0-10 rating to its histogram slot. Unrated counts as 0.
func ratingBucket(r *float64) int {
	if r == nil {
		return 0
	}
	b := int(math.Floor(*r / 2))
	if b < 0 {
		return 0
	}
	if b > 4 {
		return 4
	}
	return b
}

func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
