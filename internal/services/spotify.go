// Spotify Web API client for the dashboard
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gangwalrachit/SpotiSpy/internal/models"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// upstreamTimeout bounds every call to Spotify so a hung upstream cannot
	// hold a serving goroutine indefinitely.
	upstreamTimeout = 10 * time.Second
)

// TimeRange scopes "top items" queries to a listening-history window.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"  // last ~4 weeks
	TimeRangeMedium TimeRange = "medium_term" // last ~6 months
	TimeRangeLong   TimeRange = "long_term"   // all time
)

// ParseTimeRange validates a query-string time range. An empty value defaults
// to [TimeRangeShort]; anything outside the enumerated set is rejected, no
// substitution.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case "":
		return TimeRangeShort, nil
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return TimeRange(s), nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidTimeRange, s)
	}
}

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"` // premium, free, etc.
	Followers    followers      `json:"followers"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// ProfileInfo converts the API response into the stored profile record.
func (u *SpotifyUser) ProfileInfo() models.ProfileInfo {
	profile := models.ProfileInfo{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		ExternalURL: u.ExternalURLs.Spotify,
	}
	for _, img := range u.Images {
		profile.Images = append(profile.Images, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return profile
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Popularity   int            `json:"popularity"`
	URI          string         `json:"uri"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyTopItems represents a paginated "top items" response.
type SpotifyTopItems[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyService is a Spotify Web API client for the authorization-code flow.
//
// Unlike a single-user CLI client it holds no token itself: every API call is
// parameterized by the caller's token so one client serves all sessions.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyService creates a Spotify client from the given credentials.
// Endpoint overrides in cfg are honored so tests can point at local fakes.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8000/callback"
	}

	authURL, tokenURL, baseURL := cfg.AuthURL, cfg.TokenURL, cfg.APIBaseURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"user-top-read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: upstreamTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		baseURL:    baseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
// Pure URL construction, no network call.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
//
// Exchange failures are never retried: authorization codes are single-use, so a
// retry cannot succeed.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}
	return token, nil
}

// TokenSource returns a source that transparently refreshes the given token
// when it carries a refresh token and expiry. onRefresh is invoked whenever the
// access token changes so callers can persist the new material.
func (s *SpotifyService) TokenSource(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) oauth2.TokenSource {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	rts := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: onRefresh,
	}
	if token != nil {
		// Seed with the current token so the callback only fires on a refresh.
		rts.lastSeen = token.AccessToken
	}
	return rts
}

// UserProfile retrieves the profile of the user the token belongs to.
func (s *SpotifyService) UserProfile(ctx context.Context, token *oauth2.Token) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopTracks retrieves the user's top tracks for the given window, bounded by limit.
//
// An oversized limit is passed through; Spotify's rejection, if any, surfaces as
// an upstream failure.
func (s *SpotifyService) TopTracks(ctx context.Context, token *oauth2.Token, timeRange TimeRange, limit int) ([]SpotifyTrack, error) {
	endpoint := topItemsEndpoint("tracks", timeRange, limit)

	var response SpotifyTopItems[SpotifyTrack]
	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Items, nil
}

// TopArtists retrieves the user's top artists for the given window, bounded by limit.
func (s *SpotifyService) TopArtists(ctx context.Context, token *oauth2.Token, timeRange TimeRange, limit int) ([]SpotifyArtist, error) {
	endpoint := topItemsEndpoint("artists", timeRange, limit)

	var response SpotifyTopItems[SpotifyArtist]
	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Items, nil
}

func topItemsEndpoint(kind string, timeRange TimeRange, limit int) string {
	params := url.Values{}
	params.Set("time_range", string(timeRange))
	params.Set("limit", fmt.Sprintf("%d", limit))
	return fmt.Sprintf("/me/top/%s?%s", kind, params.Encode())
}

// doRequest performs a rate-limited, authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, token *oauth2.Token, method, endpoint string, result any) error {
	if token == nil || token.AccessToken == "" {
		return shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the access token changes, so refreshed tokens can be persisted.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu       sync.Mutex
	lastSeen string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.lastSeen
	if changed {
		r.lastSeen = token.AccessToken
	}
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}

	return token, nil
}
