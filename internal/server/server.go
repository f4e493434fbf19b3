// package server contains middleware & handlers for the dashboard web service
package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the dashboard service.
// Implementations handle specific endpoints (auth flow, content views).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// statusForError maps the shared error taxonomy to HTTP status codes.
//
// Client mistakes (missing code, bad state, bogus time range) are 400s; upstream
// faults (exchange, profile fetch, API calls) are 502s so they are never masked
// as our own failures.
func statusForError(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingCode),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrInvalidTimeRange),
		errors.Is(err, shared.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrTokenExchange),
		errors.Is(err, shared.ErrProfileFetch),
		errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs the failure and writes its mapped status with the error text.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := statusForError(err)
	if status >= 500 {
		logger.Error("request failed", "error", err, "status", status)
	} else {
		logger.Warn("request rejected", "error", err, "status", status)
	}
	http.Error(w, err.Error(), status)
}
