// Package models defines the domain entities and persistence interfaces for the dashboard.
//
// An [Identity] is one end user as known to Spotify, keyed by the provider's
// stable user id. The token and profile blobs the provider returns are modeled
// as explicit structs rather than open-ended maps so the "missing field →
// placeholder" fallbacks are testable branches.
package models

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAvatarURL is rendered when a profile carries no images.
const DefaultAvatarURL = "https://via.placeholder.com/150"

// TokenInfo holds the OAuth token material returned by the provider's token endpoint.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// OAuthToken converts the stored token material into an [oauth2.Token].
func (t TokenInfo) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

// TokenInfoFromOAuth builds a [TokenInfo] from an [oauth2.Token].
func TokenInfoFromOAuth(tok *oauth2.Token) TokenInfo {
	scope, _ := tok.Extra("scope").(string)
	return TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scope:        scope,
	}
}

// Image represents a profile image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// ProfileInfo holds the provider's "who am I" response for an identity.
type ProfileInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name,omitempty"`
	Images      []Image `json:"images,omitempty"`
	ExternalURL string  `json:"external_url,omitempty"`
}

// Name returns the display name, falling back to the user id when the profile has none.
func (p ProfileInfo) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// AvatarURL returns the first profile image URL, falling back to [DefaultAvatarURL].
func (p ProfileInfo) AvatarURL() string {
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		return p.Images[0].URL
	}
	return DefaultAvatarURL
}

// Identity represents one authenticated end user.
//
// At most one record exists per ID; a later authentication for the same ID
// overwrites TokenInfo and ProfileInfo in place.
type Identity struct {
	ID          string      `json:"id"`
	TokenInfo   TokenInfo   `json:"token_info"`
	ProfileInfo ProfileInfo `json:"profile_info"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewIdentity creates an Identity for the given id with the provided token and profile material.
func NewIdentity(id string, token TokenInfo, profile ProfileInfo) *Identity {
	now := time.Now().UTC()
	return &Identity{
		ID:          id,
		TokenInfo:   token,
		ProfileInfo: profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks if the identity's data is valid and returns an error if not.
func (i *Identity) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("identity id is required")
	}
	if i.TokenInfo.AccessToken == "" {
		return fmt.Errorf("identity access token is required")
	}
	if i.ProfileInfo.ID != "" && i.ProfileInfo.ID != i.ID {
		return fmt.Errorf("profile id %q does not match identity id %q", i.ProfileInfo.ID, i.ID)
	}
	return nil
}

// IdentityStore defines the persistence contract for identity records.
//
// Get reports an unknown id as (nil, nil): absence is a normal outcome callers
// use to redirect to login, never an error. Upsert replaces any existing record
// for the identity's id wholesale; concurrent upserts for the same id are
// serialized so readers never observe a torn mix of old and new blobs.
type IdentityStore interface {
	Upsert(ctx context.Context, identity *Identity) error  // Upsert inserts or replaces the record for identity.ID
	Get(ctx context.Context, id string) (*Identity, error) // Get retrieves a record by id, (nil, nil) when absent
	List(ctx context.Context) ([]*Identity, error)         // List enumerates all records, order store-defined
}
