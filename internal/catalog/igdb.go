package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Henry-Sarabia/igdb/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/gameshelf/internal/metrics"
	"github.com/ryanm101/gameshelf/internal/tracing"
)

const twitchTokenURL = "https://id.twitch.tv/oauth2/token"

// IGDB theme 42 is "Erotic"; it is surfaced as a tag so the safety filter sees it.
const igdbEroticTheme = 42

var igdbFields = []string{
	"id", "name", "slug", "first_release_date", "aggregated_rating",
	"total_rating", "genres", "platforms", "themes", "age_ratings",
}

// ESRB Adults Only is surfaced as the item's rating so the safety filter sees it.
var adultsOnlyLabel = Label{Name: "Adults Only", Slug: "adults-only"}

// igdbGenre maps the shared genre slugs onto IGDB filter fields.
var igdbGenre = map[string]struct {
	field string
	id    int
}{
	"action":                 {"themes", 1},
	"adventure":              {"genres", 31},
	"role-playing-games-rpg": {"genres", 12},
	"shooter":                {"genres", 5},
	"indie":                  {"genres", 32},
	"strategy":               {"genres", 15},
}

// IGDBClient implements Client for IGDB.
type IGDBClient struct {
	settings
	client *igdb.Client
}

// NewIGDBClient creates an IGDB client.
// It fetches an app access token using the provided Client ID and Secret.
func NewIGDBClient(ctx context.Context, clientID, clientSecret string, opts ...Option) (*IGDBClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("IGDB Client ID and Secret are required")
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	token, err := getTwitchToken(ctx, s.httpc, s.tokenURL, clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Twitch: %w", err)
	}

	return &IGDBClient{settings: s, client: igdb.NewClient(clientID, token, s.httpc)}, nil
}

func (p *IGDBClient) Name() string {
	return "igdb"
}

func (p *IGDBClient) FetchPage(ctx context.Context, q Query) ([]Item, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "catalog.FetchPage", tracing.WithAttributes(
		attribute.String("catalog.provider", p.Name()),
		attribute.Int("catalog.page", q.Page),
	))
	defer span.End()

	items, err := p.fetchPage(ctx, q)
	metrics.RecordCatalogRequest(p.Name(), start, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.SetSpanOK(span)
	return items, nil
}

func (p *IGDBClient) fetchPage(ctx context.Context, q Query) ([]Item, error) {
	if err := p.wait(ctx); err != nil {
		return nil, &TransportError{Op: "fetch page", Err: err}
	}

	opts, err := p.pageOptions(q)
	if err != nil {
		return nil, &TransportError{Op: "fetch page", Err: err}
	}

	var games []*igdb.Game
	if s := strings.TrimSpace(q.Search); s != "" {
		games, err = p.client.Games.Search(s, opts...)
	} else {
		games, err = p.client.Games.Index(opts...)
	}
	if errors.Is(err, igdb.ErrNoResults) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, &TransportError{Op: "fetch page", Err: err}
	}

	adults, err := p.adultsOnlyRatings(games...)
	if err != nil {
		return nil, &TransportError{Op: "fetch page", Err: err}
	}

	items := make([]Item, 0, len(games))
	for _, g := range games {
		items = append(items, convertIGDBGame(g, adults))
	}
	return items, nil
}

// adultsOnlyRatings resolves the age rating IDs of games and returns the set
// of IDs that are ESRB Adults Only. Age ratings are separate IGDB entities.
func (p *IGDBClient) adultsOnlyRatings(games ...*igdb.Game) (map[int]bool, error) {
	var ids []int
	for _, g := range games {
		ids = append(ids, g.AgeRatings...)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	ratings, err := p.client.AgeRatings.List(ids, igdb.SetFields("category", "rating"))
	if errors.Is(err, igdb.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("age ratings: %w", err)
	}
	return adultsOnlyIDs(ratings), nil
}

func adultsOnlyIDs(ratings []*igdb.AgeRating) map[int]bool {
	out := make(map[int]bool)
	for _, r := range ratings {
		if r != nil && r.Category == igdb.AgeRatingESRB && r.Rating == igdb.AgeRatingAO {
			out[r.ID] = true
		}
	}
	return out
}

func (p *IGDBClient) GetGame(ctx context.Context, id int) (*Item, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "catalog.GetGame", tracing.WithAttributes(
		attribute.String("catalog.provider", p.Name()),
		attribute.Int("catalog.game_id", id),
	))
	defer span.End()

	item, err := p.getGame(ctx, id)
	metrics.RecordCatalogRequest(p.Name(), start, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.SetSpanOK(span)
	return item, nil
}

func (p *IGDBClient) getGame(ctx context.Context, id int) (*Item, error) {
	if err := p.wait(ctx); err != nil {
		return nil, &TransportError{Op: "get game", Err: err}
	}

	game, err := p.client.Games.Get(id, igdb.SetFields(igdbFields...))
	if errors.Is(err, igdb.ErrNoResults) {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, &TransportError{Op: "get game", Err: err}
	}

	adults, err := p.adultsOnlyRatings(game)
	if err != nil {
		return nil, &TransportError{Op: "get game", Err: err}
	}
	item := convertIGDBGame(game, adults)
	return &item, nil
}

// pageOptions translates a Query into IGDB query options.
func (p *IGDBClient) pageOptions(q Query) ([]igdb.Option, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	opts := []igdb.Option{
		igdb.SetFields(igdbFields...),
		igdb.SetLimit(p.pageSize),
		igdb.SetOffset((page - 1) * p.pageSize),
	}

	if q.Genre != "" {
		field, id, err := igdbGenreFilter(q.Genre)
		if err != nil {
			return nil, err
		}
		opts = append(opts, igdb.SetFilter(field, igdb.OpEquals, strconv.Itoa(id)))
	}

	// IGDB ranks text searches itself and refuses an explicit sort alongside them.
	if strings.TrimSpace(q.Search) == "" {
		if field, desc := igdbSortField(q.Ordering()); field != "" {
			if desc {
				opts = append(opts, igdb.SetOrder(field, igdb.OrderDescending))
			} else {
				opts = append(opts, igdb.SetOrder(field, igdb.OrderAscending))
			}
		}
	}
	return opts, nil
}

func igdbGenreFilter(genre string) (string, int, error) {
	if g, ok := igdbGenre[genre]; ok {
		return g.field, g.id, nil
	}
	id, err := strconv.Atoi(genre)
	if err != nil {
		return "", 0, fmt.Errorf("unknown genre %q", genre)
	}
	return "genres", id, nil
}

// igdbSortField maps a sort key onto an IGDB field and direction.
func igdbSortField(ordering string) (string, bool) {
	switch ordering {
	case "":
		return "", false
	case "-metacritic":
		return "aggregated_rating", true
	case "-rating":
		return "total_rating", true
	case "-released":
		return "first_release_date", true
	case "-added":
		return "hypes", true
	case "-created":
		return "created_at", true
	case "name":
		return "name", false
	}
	if strings.HasPrefix(ordering, "-") {
		return ordering[1:], true
	}
	return ordering, false
}

// convertIGDBGame maps g onto an Item. adultsOnly holds the age rating IDs
// known to be ESRB Adults Only.
func convertIGDBGame(g *igdb.Game, adultsOnly map[int]bool) Item {
	item := Item{
		ID:   g.ID,
		Name: g.Name,
		Slug: g.Slug,
	}

	if g.FirstReleaseDate != 0 {
		item.Released = time.Unix(int64(g.FirstReleaseDate), 0).UTC().Format("2006-01-02")
	}
	if g.AggregatedRating > 0 {
		score := int(math.Round(g.AggregatedRating))
		item.Metacritic = &score
	}
	if g.TotalRating > 0 {
		item.Rating = math.Round(g.TotalRating/20*100) / 100
	}

	for _, id := range g.Genres {
		item.Genres = append(item.Genres, Label{ID: id})
	}
	for _, id := range g.Platforms {
		item.Platforms = append(item.Platforms, PlatformRef{Platform: Label{ID: id}})
	}
	for _, id := range g.Themes {
		if id == igdbEroticTheme {
			item.Tags = append(item.Tags, Label{ID: id, Name: "Erotic", Slug: "erotic"})
		}
	}
	for _, id := range g.AgeRatings {
		if adultsOnly[id] {
			rating := adultsOnlyLabel
			rating.ID = id
			item.ESRBRating = &rating
			break
		}
	}

	// Covers, genre and platform names are separate IGDB entities; the v2
	// structs only carry their IDs.
	return item
}

// getTwitchToken fetches an App Access Token from Twitch.
func getTwitchToken(ctx context.Context, httpc *http.Client, tokenURL, clientID, clientSecret string) (string, error) {
	vals := url.Values{}
	vals.Set("client_id", clientID)
	vals.Set("client_secret", clientSecret)
	vals.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	return result.AccessToken, nil
}
