// package services defines interface Provider for the music streaming API
//
// Spotify is the only implementation; the interface exists so the sync and
// enrich engines can run against a test double.
package services

import (
	"context"

	"github.com/desertthunder/playlog/internal/models"
)

// Provider defines the streaming-provider operations consumed by the sync
// and enrich engines.
type Provider interface {
	// AuthURL returns the provider consent URL for the given CSRF state.
	AuthURL(state string) string

	// ExchangeCode exchanges an authorization code for a token pair.
	ExchangeCode(ctx context.Context, code string) (*models.Tokens, error)

	// RefreshToken obtains a fresh access token. The returned refresh token
	// may be rotated; callers must persist it immediately because the
	// provider may invalidate the old one on use.
	RefreshToken(ctx context.Context, refreshToken string) (*models.Tokens, error)

	// UserProfile retrieves the authenticated user's account profile.
	UserProfile(ctx context.Context, accessToken string) (*UserProfile, error)

	// RecentlyPlayed retrieves one page of recent play events, newest first,
	// normalized into [models.PlayRecord]. afterMs of 0 means no floor.
	RecentlyPlayed(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error)

	// SeveralTracks retrieves raw track metadata for up to 50 ids.
	SeveralTracks(ctx context.Context, accessToken string, ids []string) ([]SpotifyTrack, error)

	// SeveralArtists retrieves raw artist metadata for up to 50 ids.
	SeveralArtists(ctx context.Context, accessToken string, ids []string) ([]SpotifyArtist, error)

	// Name returns the provider's display name.
	Name() string
}

// UserProfile represents the provider account owning the listening history.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
}
