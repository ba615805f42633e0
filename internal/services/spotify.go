// Spotify implementation of [TrackService] using the client-credentials grant
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ellievs/covermatch/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// tokenSafetyMargin is subtracted from the server-declared token lifetime
	// so a token is never used while it expires mid-request.
	tokenSafetyMargin = 300 * time.Second

	searchLimit    = 20
	defaultRetries = 3
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
		Total int     `json:"total"`
	} `json:"tracks"`
}

// SpotifyClient implements [TrackService] against the Spotify Web API.
//
// Holds the cached bearer token in process memory; the token is refreshed via
// the client-credentials grant once the clock passes expiry. All outbound
// calls go through apiRequest, which owns the retry and backoff policy.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	baseURL      string
	retries      int
	httpClient   *http.Client
	logger       *log.Logger

	mu    sync.Mutex
	token *oauth2.Token

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// SpotifyClientOpts contains configuration options for creating a SpotifyClient.
type SpotifyClientOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // defaults to the Spotify accounts endpoint
	BaseURL      string // defaults to the Spotify Web API
	Retries      int
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// NewSpotifyClient creates a new SpotifyClient with the provided options.
func NewSpotifyClient(opts SpotifyClientOpts) *SpotifyClient {
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		tokenURL:     opts.TokenURL,
		baseURL:      opts.BaseURL,
		retries:      opts.Retries,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// sleepContext sleeps for d unless the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsConfigured reports whether both credential fields are non-empty.
func (s *SpotifyClient) IsConfigured() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// authenticate returns a valid bearer token, exchanging client credentials
// for a new one when the cached token is absent or past expiry.
func (s *SpotifyClient) authenticate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.now().Before(s.token.Expiry) {
		return s.token.AccessToken, nil
	}

	if !s.IsConfigured() {
		return "", fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", shared.ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", shared.ErrAuthFailed, err)
	}

	s.token = &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		Expiry:      s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSafetyMargin),
	}

	s.logger.Debug("exchanged client credentials for access token", "expires_in", tr.ExpiresIn)

	return s.token.AccessToken, nil
}

// apiRequest executes an authenticated GET against the Spotify API with retry.
//
// 429 responses honor the server's Retry-After hint (default 1s) and retry on
// a separate branch from the exponential backoff used for other failures.
// The last attempt's error is returned as-is; exhausting every attempt on the
// rate-limit branch yields [shared.ErrRetriesExhausted].
func (s *SpotifyClient) apiRequest(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		body, retryAfter, err := s.attempt(ctx, token, endpoint)
		if err == nil {
			return body, nil
		}

		if retryAfter > 0 {
			s.logger.Warn("rate limited, honoring Retry-After", "endpoint", endpoint, "wait", retryAfter)
			if serr := s.sleep(ctx, retryAfter); serr != nil {
				return nil, serr
			}
			continue
		}

		if attempt == s.retries-1 {
			return nil, err
		}

		backoff := time.Duration(1<<attempt) * time.Second
		s.logger.Warn("request failed, backing off", "endpoint", endpoint, "attempt", attempt+1, "backoff", backoff, "error", err)
		if serr := s.sleep(ctx, backoff); serr != nil {
			return nil, serr
		}
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrRetriesExhausted, endpoint)
}

// attempt performs a single authenticated request. A positive retryAfter
// signals a 429 response and carries the server's requested delay.
func (s *SpotifyClient) attempt(ctx context.Context, token, endpoint string) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := time.Second
		if hint := resp.Header.Get("Retry-After"); hint != "" {
			if secs, perr := strconv.Atoi(hint); perr == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		return nil, wait, fmt.Errorf("%w: %s", shared.ErrRateLimited, endpoint)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, 0, nil
}

// SearchTrack searches for tracks using field filters.
//
// Best-effort: returns an empty slice when title is blank or on any API
// failure, so callers never need to handle search errors.
func (s *SpotifyClient) SearchTrack(ctx context.Context, title, artist string, year int, market string) []Track {
	if strings.TrimSpace(title) == "" {
		return nil
	}

	parts := []string{"track:" + normalizeQuery(title)}
	if strings.TrimSpace(artist) != "" {
		parts = append(parts, "artist:"+normalizeQuery(artist))
	}
	if year > 0 {
		parts = append(parts, fmt.Sprintf("year:%d", year))
	}

	query := url.QueryEscape(strings.Join(parts, " "))
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d&market=%s", query, searchLimit, url.QueryEscape(market))

	body, err := s.apiRequest(ctx, endpoint)
	if err != nil {
		s.logger.Warn("track search failed", "title", title, "error", err)
		return nil
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		s.logger.Warn("failed to decode search response", "error", err)
		return nil
	}

	return result.Tracks.Items
}

// GetTrack fetches a single track by ID. Nil on any failure.
func (s *SpotifyClient) GetTrack(ctx context.Context, trackID, market string) *Track {
	endpoint := fmt.Sprintf("/tracks/%s?market=%s", url.PathEscape(trackID), url.QueryEscape(market))

	body, err := s.apiRequest(ctx, endpoint)
	if err != nil {
		s.logger.Warn("track fetch failed", "track_id", trackID, "error", err)
		return nil
	}

	var track Track
	if err := json.Unmarshal(body, &track); err != nil {
		s.logger.Warn("failed to decode track response", "track_id", trackID, "error", err)
		return nil
	}

	return &track
}

// GetAlbum fetches a single album by ID. Nil on any failure.
func (s *SpotifyClient) GetAlbum(ctx context.Context, albumID, market string) *Album {
	endpoint := fmt.Sprintf("/albums/%s?market=%s", url.PathEscape(albumID), url.QueryEscape(market))

	body, err := s.apiRequest(ctx, endpoint)
	if err != nil {
		s.logger.Warn("album fetch failed", "album_id", albumID, "error", err)
		return nil
	}

	var album Album
	if err := json.Unmarshal(body, &album); err != nil {
		s.logger.Warn("failed to decode album response", "album_id", albumID, "error", err)
		return nil
	}

	return &album
}

// normalizeQuery strips bracket characters and collapses whitespace so field
// values do not collide with the search query syntax.
func normalizeQuery(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
