// Jikan (MyAnimeList) implementation of [ImageService]
//
// Jikan is free and unauthenticated but allows only ~3 requests per second,
// so lookups are paced through a rate limiter and results are cached per
// normalized origin, misses included.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/shared"
	"golang.org/x/time/rate"
)

const jikanBaseURL = "https://api.jikan.moe/v4"

type jikanAnime struct {
	MalID  int    `json:"mal_id"`
	Title  string `json:"title"`
	Images struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			SmallImageURL string `json:"small_image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

type jikanSearchResponse struct {
	Data []jikanAnime `json:"data"`
}

// JikanClient implements [ImageService] against the Jikan anime API.
//
// Every lookup outcome is cached by normalized origin so songs sharing a
// series name reuse one HTTP call, and a series with no result is not
// retried within the process lifetime.
type JikanClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu    sync.Mutex
	cache map[string]string // normalized origin -> image URL ("" = known miss)
}

// JikanClientOpts contains configuration options for creating a JikanClient.
type JikanClientOpts struct {
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// NewJikanClient creates a new JikanClient with the provided options.
func NewJikanClient(opts JikanClientOpts) *JikanClient {
	if opts.BaseURL == "" {
		opts.BaseURL = jikanBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2.5
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &JikanClient{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:     opts.Logger,
		cache:      make(map[string]string),
	}
}

// AnimeCover returns the large cover image URL for the first search result
// matching origin, or empty string when nothing is found.
//
// Best-effort: rate limiting and every API failure resolve to a miss, never
// an error.
func (j *JikanClient) AnimeCover(ctx context.Context, origin string) string {
	key := strings.ToLower(strings.TrimSpace(origin))
	if key == "" {
		return ""
	}

	j.mu.Lock()
	if cached, ok := j.cache[key]; ok {
		j.mu.Unlock()
		return cached
	}
	j.mu.Unlock()

	result := j.fetchCover(ctx, key)

	j.mu.Lock()
	j.cache[key] = result
	j.mu.Unlock()

	return result
}

// fetchCover performs the paced HTTP lookup for a normalized origin.
func (j *JikanClient) fetchCover(ctx context.Context, query string) string {
	if err := j.limiter.Wait(ctx); err != nil {
		return ""
	}

	endpoint := fmt.Sprintf("%s/anime?q=%s&limit=1", j.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		j.logger.Warn("failed to create anime search request", "query", query, "error", err)
		return ""
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		j.logger.Warn("anime search failed", "query", query, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		j.logger.Warn("anime API rate limit reached", "query", query)
		return ""
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		j.logger.Warn("anime API error", "query", query, "status", resp.StatusCode)
		return ""
	}

	var result jikanSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		j.logger.Warn("failed to decode anime search response", "query", query, "error", err)
		return ""
	}

	if len(result.Data) == 0 {
		return ""
	}

	return result.Data[0].Images.JPG.LargeImageURL
}

// ClearCache drops all cached lookups. Intended for tests and manual
// invalidation.
func (j *JikanClient) ClearCache() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cache = make(map[string]string)
}
