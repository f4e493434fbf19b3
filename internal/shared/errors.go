package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrMissingCode      = fmt.Errorf("authorization code missing")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")
	ErrTokenExchange    = fmt.Errorf("token exchange failed")
	ErrProfileFetch     = fmt.Errorf("profile fetch failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Content errors
	ErrInvalidTimeRange    = fmt.Errorf("invalid time range")
	ErrInvalidLimit        = fmt.Errorf("invalid limit")
	ErrUpstreamUnavailable = fmt.Errorf("upstream API unavailable")
)
