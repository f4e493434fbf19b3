package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gangwalrachit/SpotiSpy/internal/models"
	"github.com/gangwalrachit/SpotiSpy/internal/services"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
)

// AuthHandler orchestrates the OAuth2 authorization-code flow: login redirect,
// callback handling, and logout. Implements [Handler] for registration with a [Router].
type AuthHandler struct {
	spotify    *services.SpotifyService
	identities models.IdentityStore
	sessions   *SessionBinder
	logger     *log.Logger
}

// NewAuthHandler creates an [AuthHandler] with the given collaborators.
func NewAuthHandler(spotify *services.SpotifyService, identities models.IdentityStore, sessions *SessionBinder, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		spotify:    spotify,
		identities: identities,
		sessions:   sessions,
		logger:     logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/login", "/logout", "/callback"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.handleLogin(w, r)
	case "/logout":
		h.handleLogout(w, r)
	case "/callback":
		h.handleCallback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleLogin stores a fresh state token in the session and redirects to
// Spotify's authorization URL.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.sessions.SetState(w, r, state); err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to save session: %w", err))
		return
	}

	http.Redirect(w, r, h.spotify.AuthURL(state), http.StatusFound)
}

// handleCallback completes the authorization-code flow.
//
// The store is only mutated after both the token exchange and the profile fetch
// succeed; a failure at any earlier step leaves store and session binding
// unchanged.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	wantState := h.sessions.TakeState(w, r)
	if wantState == "" || query.Get("state") != wantState {
		writeError(w, h.logger, shared.ErrInvalidState)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, h.logger, shared.ErrMissingCode)
		return
	}

	token, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.spotify.UserProfile(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", shared.ErrProfileFetch, err))
		return
	}

	identity := models.NewIdentity(user.ID, models.TokenInfoFromOAuth(token), user.ProfileInfo())
	if err := h.identities.Upsert(r.Context(), identity); err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to store identity: %w", err))
		return
	}

	if err := h.sessions.Bind(w, r, user.ID); err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to bind session: %w", err))
		return
	}

	h.logger.Info("user authenticated", "user_id", user.ID)
	http.Redirect(w, r, "/top", http.StatusFound)
}

// handleLogout unbinds the session and redirects home. The store is untouched:
// other active sessions for the same identity are unaffected.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Unbind(w, r); err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to clear session: %w", err))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
