package server

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "spotispy"
	userIDKey     = "user_id"
	oauthStateKey = "oauth_state"
)

// SessionBinder associates a browser session with at most one identity id.
//
// The binding is a weak reference: Current reports who the session claims to
// be, and it is the caller's responsibility to check that identity still exists
// in the store. Backed by a signed [sessions.CookieStore].
type SessionBinder struct {
	store *sessions.CookieStore
}

// NewSessionBinder creates a [SessionBinder] signing cookies with the given secret.
func NewSessionBinder(secret []byte) *SessionBinder {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionBinder{store: store}
}

// session loads the request's session, falling back to a fresh one when the
// cookie is missing or fails signature validation.
func (b *SessionBinder) session(r *http.Request) *sessions.Session {
	session, _ := b.store.Get(r, sessionName)
	return session
}

// Bind sets the session's identity reference to id, overwriting any prior value.
func (b *SessionBinder) Bind(w http.ResponseWriter, r *http.Request, id string) error {
	session := b.session(r)
	session.Values[userIDKey] = id
	return session.Save(r, w)
}

// Unbind clears the session's identity reference. Idempotent.
func (b *SessionBinder) Unbind(w http.ResponseWriter, r *http.Request) error {
	session := b.session(r)
	delete(session.Values, userIDKey)
	return session.Save(r, w)
}

// Current returns the bound identity id, or ok=false if none is bound.
func (b *SessionBinder) Current(r *http.Request) (string, bool) {
	session := b.session(r)
	id, ok := session.Values[userIDKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SetState stores the OAuth state token for the session's in-flight login.
func (b *SessionBinder) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	session := b.session(r)
	session.Values[oauthStateKey] = state
	return session.Save(r, w)
}

// TakeState returns and clears the stored OAuth state token. A state token is
// single-use: reading it consumes it.
func (b *SessionBinder) TakeState(w http.ResponseWriter, r *http.Request) string {
	session := b.session(r)
	state, _ := session.Values[oauthStateKey].(string)
	delete(session.Values, oauthStateKey)
	session.Save(r, w)
	return state
}
