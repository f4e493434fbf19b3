// Package services implements the Spotify Web API client used by the dashboard.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 authorization-code flow for authentication.
// It holds no token of its own: every call takes the session user's token, so a
// single client instance serves all authenticated users.
//
// Token refresh is transparent: [SpotifyService.TokenSource] wraps the oauth2
// source and invokes a callback whenever the access token changes so callers
// can persist the refreshed material.
//
// # Rate Limiting and Timeouts
//
// All API calls share a [rate.Limiter] and an HTTP client with an explicit
// timeout so an unresponsive upstream cannot pin serving goroutines.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no access token supplied
//   - [shared.ErrTokenExchange] : authorization-code exchange failed
//   - [shared.ErrInvalidTimeRange] : time range outside the enumerated set
//   - [shared.ErrUpstreamUnavailable] : Spotify request failed or returned non-2xx
package services
