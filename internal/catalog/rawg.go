package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gameshelf/internal/metrics"
	"github.com/ryanm101/gameshelf/internal/tracing"
)

const (
	DefaultBaseURL  = "https://api.rawg.io/api"
	DefaultPageSize = 40
	DefaultTimeout  = 15 * time.Second
)

// settings are shared by every provider.
type settings struct {
	baseURL  string
	tokenURL string
	pageSize int
	httpc    *http.Client
	limiter  *rate.Limiter
}

func defaultSettings() settings {
	return settings{
		baseURL:  DefaultBaseURL,
		tokenURL: twitchTokenURL,
		pageSize: DefaultPageSize,
		httpc:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Option customizes a catalog client.
type Option func(*settings)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithPageSize sets the number of games requested per page.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.httpc = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.httpc = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit spaces requests to at most perSecond, allowing bursts of burst.
// Calls wait for a slot; they are never dropped or retried.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// withTokenURL overrides the Twitch token endpoint (tests).
func withTokenURL(u string) Option {
	return func(s *settings) { s.tokenURL = u }
}

func (s *settings) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// RAWGClient implements Client against the RAWG games API.
type RAWGClient struct {
	settings
	apiKey string
}

// NewRAWGClient creates a client authenticating with apiKey.
func NewRAWGClient(apiKey string, opts ...Option) *RAWGClient {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &RAWGClient{settings: s, apiKey: strings.TrimSpace(apiKey)}
}

func (c *RAWGClient) Name() string {
	return "rawg"
}

// PageSize returns the number of games requested per page.
func (c *RAWGClient) PageSize() int {
	return c.pageSize
}

type rawgPage struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []Item  `json:"results"`
}

// FetchPage requests one page of /games. Any failure is returned as a *TransportError.
func (c *RAWGClient) FetchPage(ctx context.Context, q Query) ([]Item, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "catalog.FetchPage", tracing.WithAttributes(
		attribute.String("catalog.provider", c.Name()),
		attribute.Int("catalog.page", q.Page),
		attribute.String("catalog.genre", q.Genre),
		attribute.String("catalog.sort", q.Sort),
	))
	defer span.End()

	var page rawgPage
	err := c.doGET(ctx, "fetch page", c.pageURL(q), &page)
	metrics.RecordCatalogRequest(c.Name(), start, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	tracing.AddSpanAttributes(span, attribute.Int("catalog.results", len(page.Results)))
	tracing.SetSpanOK(span)
	return page.Results, nil
}

// GetGame fetches /games/{id}.
func (c *RAWGClient) GetGame(ctx context.Context, id int) (*Item, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "catalog.GetGame", tracing.WithAttributes(
		attribute.String("catalog.provider", c.Name()),
		attribute.Int("catalog.game_id", id),
	))
	defer span.End()

	params := url.Values{}
	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/games/%d?%s", c.baseURL, id, params.Encode())

	var item Item
	err := c.doGET(ctx, "get game", endpoint, &item)
	metrics.RecordCatalogRequest(c.Name(), start, err)
	if err != nil {
		tracing.RecordError(span, err)
		var te *TransportError
		if errors.As(err, &te) && te.Status == http.StatusNotFound {
			return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	tracing.SetSpanOK(span)
	return &item, nil
}

// pageURL builds the /games query. Relevance sends no ordering parameter.
func (c *RAWGClient) pageURL(q Query) string {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}
	if q.Genre != "" {
		params.Set("genres", q.Genre)
	}
	if ordering := q.Ordering(); ordering != "" {
		params.Set("ordering", ordering)
	}
	return c.baseURL + "/games?" + params.Encode()
}

// doGET performs a single GET and decodes the JSON body into v.
func (c *RAWGClient) doGET(ctx context.Context, op, endpoint string, v any) error {
	if err := c.wait(ctx); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
