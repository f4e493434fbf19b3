package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gangwalrachit/SpotiSpy/internal/models"
	"github.com/gangwalrachit/SpotiSpy/internal/services"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
	"golang.org/x/oauth2"
)

//go:embed templates/*.html
var templateFiles embed.FS

const defaultLimit = 5

// ContentHandler renders the home and top-items views for a session-bound
// identity. Implements [Handler] for registration with a [Router].
type ContentHandler struct {
	spotify    *services.SpotifyService
	identities models.IdentityStore
	sessions   *SessionBinder
	logger     *log.Logger
	templates  *template.Template
}

// NewContentHandler creates a [ContentHandler] with parsed view templates.
func NewContentHandler(spotify *services.SpotifyService, identities models.IdentityStore, sessions *SessionBinder, logger *log.Logger) (*ContentHandler, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &ContentHandler{
		spotify:    spotify,
		identities: identities,
		sessions:   sessions,
		logger:     logger,
		templates:  templates,
	}, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *ContentHandler) Routes() []string {
	return []string{"/", "/top"}
}

func (h *ContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		h.handleHome(w, r)
	case "/top":
		h.handleTop(w, r)
	default:
		http.NotFound(w, r)
	}
}

// homeData feeds the index template.
type homeData struct {
	Authenticated bool
	UserName      string
	UserPfp       string
	UserProfile   string
}

// handleHome renders the home view: a login prompt, or a personalized greeting
// when the session is bound to a known identity.
func (h *ContentHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homeData{}

	if id, ok := h.sessions.Current(r); ok {
		identity, err := h.identities.Get(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		if identity != nil {
			data.Authenticated = true
			data.UserName = identity.ProfileInfo.Name()
			data.UserPfp = identity.ProfileInfo.AvatarURL()
			data.UserProfile = identity.ProfileInfo.ExternalURL
		}
	}

	h.render(w, "index.html", data)
}

// topData feeds the top-items template.
type topData struct {
	UserID     string
	TimeRange  string
	Limit      int
	TopTracks  []services.SpotifyTrack
	TopArtists []services.SpotifyArtist
}

// handleTop renders the user's top tracks and artists for the requested window.
//
// A session with no binding, or a binding the store no longer knows, is the
// normal unauthenticated path and redirects to login rather than erroring.
func (h *ContentHandler) handleTop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	identity, err := h.identities.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if identity == nil {
		// Stale binding: the store no longer has this identity.
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	query := r.URL.Query()

	timeRange, err := services.ParseTimeRange(query.Get("time_range"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.currentToken(r, identity)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err))
		return
	}

	tracks, err := h.spotify.TopTracks(r.Context(), token, timeRange, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	artists, err := h.spotify.TopArtists(r.Context(), token, timeRange, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.render(w, "top.html", topData{
		UserID:     identity.ID,
		TimeRange:  string(timeRange),
		Limit:      limit,
		TopTracks:  tracks,
		TopArtists: artists,
	})
}

// currentToken resolves the identity's token, refreshing it through the token
// source when expired. Refreshed tokens are written back to the store so the
// next request skips the refresh.
func (h *ContentHandler) currentToken(r *http.Request, identity *models.Identity) (*oauth2.Token, error) {
	source := h.spotify.TokenSource(r.Context(), identity.TokenInfo.OAuthToken(), func(token *oauth2.Token) {
		refreshed := *identity
		refreshed.TokenInfo = models.TokenInfoFromOAuth(token)
		if err := h.identities.Upsert(r.Context(), &refreshed); err != nil {
			h.logger.Warn("failed to persist refreshed token", "user_id", identity.ID, "error", err)
		}
	})
	return source.Token()
}

// parseLimit validates the limit query parameter, defaulting to [defaultLimit].
// No upper bound: an oversized limit is passed through to the upstream API.
func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidLimit, s)
	}

	return limit, nil
}

func (h *ContentHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template", "template", name, "error", err)
	}
}
