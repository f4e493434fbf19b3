package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gangwalrachit/SpotiSpy/internal/shared"
	"golang.org/x/oauth2"
)

func testCredentials() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:8000/callback",
	}
}

// newFakeSpotify starts an httptest server imitating the Spotify API surface the dashboard uses.
func newFakeSpotify(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.FormValue("code") == "" {
			http.Error(w, "invalid_grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok",
			"token_type":    "Bearer",
			"refresh_token": "refresh_tok",
			"expires_in":    3600,
			"scope":         "user-top-read",
		})
	})

	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "u42",
			"display_name":  "Alex",
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/user/u42"},
			"images":        []map[string]any{{"url": "https://img.example/alex.png", "height": 64, "width": 64}},
		})
	})

	topItems := func(kind string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit <= 0 || limit > 10 {
				limit = 10
			}
			items := make([]map[string]any, 0, limit)
			for i := 1; i <= limit; i++ {
				items = append(items, map[string]any{
					"id":   fmt.Sprintf("%s_%d", kind, i),
					"name": fmt.Sprintf("%s-%d", kind, i),
				})
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"items": items, "total": limit, "limit": limit})
		}
	}
	mux.HandleFunc("/me/top/tracks", topItems("track"))
	mux.HandleFunc("/me/top/artists", topItems("artist"))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, upstream *httptest.Server) *SpotifyService {
	t.Helper()

	cfg := testCredentials()
	cfg.AuthURL = upstream.URL + "/authorize"
	cfg.TokenURL = upstream.URL + "/api/token"
	cfg.APIBaseURL = upstream.URL

	srv, err := NewSpotifyService(cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestParseTimeRange(t *testing.T) {
	t.Run("accepts enumerated values", func(t *testing.T) {
		for _, s := range []string{"short_term", "medium_term", "long_term"} {
			tr, err := ParseTimeRange(s)
			if err != nil {
				t.Errorf("expected %s to parse, got %v", s, err)
			}
			if string(tr) != s {
				t.Errorf("expected %s, got %s", s, tr)
			}
		}
	})

	t.Run("empty defaults to short term", func(t *testing.T) {
		tr, err := ParseTimeRange("")
		if err != nil {
			t.Fatalf("expected default, got %v", err)
		}
		if tr != TimeRangeShort {
			t.Errorf("expected short_term, got %s", tr)
		}
	})

	t.Run("rejects anything else", func(t *testing.T) {
		_, err := ParseTimeRange("bogus_range")
		if !errors.Is(err, shared.ErrInvalidTimeRange) {
			t.Errorf("expected ErrInvalidTimeRange, got %v", err)
		}
	})
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "only_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Endpoints", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
			if srv.config.Endpoint.AuthURL != spotifyAuthURL {
				t.Errorf("expected default auth URL, got %s", srv.config.Endpoint.AuthURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.AuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "user-top-read") {
			t.Error("auth URL should request the user-top-read scope")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		upstream := newFakeSpotify(t)
		srv := newTestService(t, upstream)

		t.Run("succeeds with valid code", func(t *testing.T) {
			token, err := srv.Exchange(context.Background(), "abc")
			if err != nil {
				t.Fatalf("expected exchange to succeed, got %v", err)
			}
			if token.AccessToken != "tok" {
				t.Errorf("expected access token tok, got %s", token.AccessToken)
			}
			if token.RefreshToken != "refresh_tok" {
				t.Errorf("expected refresh token, got %s", token.RefreshToken)
			}
		})

		t.Run("wraps failures as ErrTokenExchange", func(t *testing.T) {
			_, err := srv.Exchange(context.Background(), "")
			if !errors.Is(err, shared.ErrTokenExchange) {
				t.Errorf("expected ErrTokenExchange, got %v", err)
			}
		})
	})

	t.Run("UserProfile", func(t *testing.T) {
		upstream := newFakeSpotify(t)
		srv := newTestService(t, upstream)

		user, err := srv.UserProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
		if err != nil {
			t.Fatalf("expected profile fetch to succeed, got %v", err)
		}

		if user.ID != "u42" || user.DisplayName != "Alex" {
			t.Errorf("unexpected profile: %+v", user)
		}

		profile := user.ProfileInfo()
		if profile.ExternalURL != "https://open.spotify.com/user/u42" {
			t.Errorf("expected external URL, got %s", profile.ExternalURL)
		}
		if profile.AvatarURL() != "https://img.example/alex.png" {
			t.Errorf("expected avatar URL, got %s", profile.AvatarURL())
		}
	})

	t.Run("TopItems", func(t *testing.T) {
		upstream := newFakeSpotify(t)
		srv := newTestService(t, upstream)
		token := &oauth2.Token{AccessToken: "tok"}

		t.Run("TopTracks honors limit", func(t *testing.T) {
			tracks, err := srv.TopTracks(context.Background(), token, TimeRangeMedium, 3)
			if err != nil {
				t.Fatalf("expected top tracks, got %v", err)
			}
			if len(tracks) != 3 {
				t.Errorf("expected 3 tracks, got %d", len(tracks))
			}
			if tracks[0].Name != "track-1" {
				t.Errorf("expected track-1, got %s", tracks[0].Name)
			}
		})

		t.Run("TopArtists honors limit", func(t *testing.T) {
			artists, err := srv.TopArtists(context.Background(), token, TimeRangeShort, 2)
			if err != nil {
				t.Fatalf("expected top artists, got %v", err)
			}
			if len(artists) != 2 {
				t.Errorf("expected 2 artists, got %d", len(artists))
			}
		})

		t.Run("missing token is ErrNotAuthenticated", func(t *testing.T) {
			_, err := srv.TopTracks(context.Background(), nil, TimeRangeShort, 5)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("upstream rejection is ErrUpstreamUnavailable", func(t *testing.T) {
			_, err := srv.TopTracks(context.Background(), &oauth2.Token{AccessToken: "wrong"}, TimeRangeShort, 5)
			if !errors.Is(err, shared.ErrUpstreamUnavailable) {
				t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
			}
		})
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback on first token fetch", func(t *testing.T) {
		callbackCalled := false
		var capturedToken *oauth2.Token

		source := &refreshableTokenSource{
			source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			callback: func(token *oauth2.Token) {
				callbackCalled = true
				capturedToken = token
			},
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !callbackCalled {
			t.Error("expected callback to be called on first fetch")
		}
		if capturedToken == nil || capturedToken.AccessToken != "test_token" {
			t.Errorf("expected captured token 'test_token', got %+v", capturedToken)
		}
		if token.AccessToken != "test_token" {
			t.Errorf("expected returned token 'test_token', got %s", token.AccessToken)
		}
	})

	t.Run("calls callback when token changes", func(t *testing.T) {
		callCount := 0
		mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}

		source := &refreshableTokenSource{
			source:   mockSource,
			callback: func(token *oauth2.Token) { callCount++ },
		}

		source.Token()
		if callCount != 1 {
			t.Errorf("expected callback called once, got %d", callCount)
		}

		mockSource.token = &oauth2.Token{AccessToken: "token2"}
		token2, _ := source.Token()

		if callCount != 2 {
			t.Errorf("expected callback called twice, got %d", callCount)
		}
		if token2.AccessToken != "token2" {
			t.Errorf("expected new token, got %s", token2.AccessToken)
		}
	})

	t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
		callCount := 0

		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same_token"}},
			callback: func(token *oauth2.Token) { callCount++ },
		}

		source.Token()
		source.Token()
		source.Token()

		if callCount != 1 {
			t.Errorf("expected callback called once, got %d", callCount)
		}
	})

	t.Run("seeded source skips callback for known token", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "seeded"}},
			lastSeen: "seeded",
			callback: func(token *oauth2.Token) {
				t.Error("callback should not fire when the token has not changed")
			},
		}

		if _, err := source.Token(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("handles nil callback", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error with nil callback, got %v", err)
		}
		if token.AccessToken != "test_token" {
			t.Error("expected token to be returned despite nil callback")
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: &mockTokenSource{err: errors.New("token source error")},
			callback: func(token *oauth2.Token) {
				t.Error("callback should not be called on error")
			},
		}

		token, err := source.Token()
		if err == nil {
			t.Fatal("expected error from source")
		}
		if !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if token != nil {
			t.Error("expected nil token on error")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
