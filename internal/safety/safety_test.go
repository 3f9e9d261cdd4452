package safety

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/gameshelf/internal/catalog"
)

func tagged(id int, slugs ...string) catalog.Item {
	item := catalog.Item{ID: id, Name: "game"}
	for _, s := range slugs {
		item.Tags = append(item.Tags, catalog.Label{Slug: s})
	}
	return item
}

func rated(id int, slug string) catalog.Item {
	return catalog.Item{ID: id, ESRBRating: &catalog.Label{Slug: slug}}
}

func ids(items []catalog.Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilter_DropsBlockedTags(t *testing.T) {
	for _, slug := range BlockedTags {
		t.Run(slug, func(t *testing.T) {
			out := Filter([]catalog.Item{tagged(1, "singleplayer"), tagged(2, "open-world", slug), tagged(3)})
			assert.Equal(t, []int{1, 3}, ids(out))
		})
	}
}

func TestFilter_DropsAdultsOnly(t *testing.T) {
	out := Filter([]catalog.Item{rated(1, "mature"), rated(2, "adults-only"), rated(3, "everyone")})
	assert.Equal(t, []int{1, 3}, ids(out))
}

func TestFilter_NormalizesSlugs(t *testing.T) {
	tests := []struct {
		name string
		item catalog.Item
	}{
		{"upper case", tagged(1, "NSFW")},
		{"underscore", tagged(1, "sexual_content")},
		{"spaces", tagged(1, " Sexual Content ")},
		{"accented", tagged(1, "Érotic")},
		{"name only", catalog.Item{ID: 1, Tags: []catalog.Label{{Name: "Hentai"}}}},
		{"rating name", catalog.Item{ID: 1, ESRBRating: &catalog.Label{Name: "Adults Only"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Filter([]catalog.Item{tt.item}))
		})
	}
}

func TestFilter_PassesCleanItemsUnchanged(t *testing.T) {
	score := 90
	in := []catalog.Item{{
		ID:         5,
		Name:       "Celeste",
		Metacritic: &score,
		Tags:       []catalog.Label{{ID: 1, Name: "Furry Friends", Slug: "furry-friends"}},
	}}

	out := Filter(in)
	require.Len(t, out, 1)
	assert.Equal(t, in[0], out[0])
}

func TestFilter_EmptyInput(t *testing.T) {
	assert.Empty(t, Filter(nil))
	assert.NotNil(t, Filter(nil))
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := []catalog.Item{tagged(1, "nsfw"), tagged(2)}
	_ = Filter(in)
	assert.Equal(t, []int{1, 2}, ids(in))
}

func TestNewFilter_ExtraTags(t *testing.T) {
	f := NewFilter("Gore", "")
	out := f.Apply([]catalog.Item{tagged(1, "gore"), tagged(2, "nsfw"), tagged(3, "puzzle")})
	assert.Equal(t, []int{3}, ids(out))

	assert.True(t, Filter([]catalog.Item{tagged(1, "gore")})[0].ID == 1, "default filter is unaffected")
}

func TestReason(t *testing.T) {
	f := NewFilter()
	assert.Equal(t, "tag", f.Reason(tagged(1, "nudity")))
	assert.Equal(t, "rating", f.Reason(rated(1, "adults-only")))
	assert.Equal(t, "", f.Reason(tagged(1, "racing")))
	assert.True(t, f.Allowed(tagged(1, "racing")))
}

// Output is an order-preserving subset with nothing blocked left in it.
func TestFilter_SubsetProperty(t *testing.T) {
	pool := []string{"singleplayer", "nsfw", "co-op", "erotic", "indie", "furry", "rpg", "nudity"}
	ratings := []string{"", "everyone", "mature", "adults-only"}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		var in []catalog.Item
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			item := catalog.Item{ID: round*100 + i}
			tags := rng.Intn(4)
			for j := 0; j < tags; j++ {
				item.Tags = append(item.Tags, catalog.Label{Slug: pool[rng.Intn(len(pool))]})
			}
			if r := ratings[rng.Intn(len(ratings))]; r != "" {
				item.ESRBRating = &catalog.Label{Slug: r}
			}
			in = append(in, item)
		}

		out := Filter(in)

		cursor := 0
		for _, kept := range out {
			for cursor < len(in) && in[cursor].ID != kept.ID {
				cursor++
			}
			require.Less(t, cursor, len(in), "output must be an ordered subsequence")
			cursor++

			for _, tag := range kept.Tags {
				assert.NotContains(t, BlockedTags, tag.Slug)
			}
			if kept.ESRBRating != nil {
				assert.NotEqual(t, AdultsOnly, kept.ESRBRating.Slug)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "sexual-content", Normalize("Sexual  Content"))
	assert.Equal(t, "adults-only", Normalize("adults_only"))
	assert.Equal(t, "", Normalize("   "))
}
