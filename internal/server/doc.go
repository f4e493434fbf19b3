// Package server provides HTTP routing, session binding, and the dashboard's request handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Session Binding
//
// [SessionBinder] maps a signed browser cookie to at most one identity id.
// The binding is a weak reference: handlers look the id up in the identity
// store on every request, and a store miss is treated as "not authenticated."
//
// # Handlers
//
// [AuthHandler] implements the OAuth2 authorization-code flow:
//
//	GET /login    → redirect to Spotify's authorization URL with a session-held state token
//	GET /callback → validate state, exchange code, fetch profile, upsert store, bind session
//	GET /logout   → unbind session, redirect home
//
// The callback mutates the store only after both the token exchange and the
// profile fetch succeed.
//
// [ContentHandler] renders the views:
//
//	GET /    → home view with login prompt or personalized greeting
//	GET /top → top tracks and artists for a time_range/limit, or redirect to /login
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
