// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxPageSize is the provider's hard cap on recently-played page size.
	maxPageSize = 50
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Genres       []string          `json:"genres"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []SpotifyArtist   `json:"artists"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// ArtistNames returns the track's artist names comma-joined.
func (t SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// CanonicalURL returns the track's external URL, constructing one from the
// track id when the provider omits it.
func (t SpotifyTrack) CanonicalURL() string {
	if u, ok := t.ExternalURLs["spotify"]; ok && u != "" {
		return u
	}
	if t.ID == "" {
		return ""
	}
	return "https://open.spotify.com/track/" + t.ID
}

// CanonicalURL returns the artist's external URL, constructing one from the
// artist id when the provider omits it.
func (a SpotifyArtist) CanonicalURL() string {
	if u, ok := a.ExternalURLs["spotify"]; ok && u != "" {
		return u
	}
	if a.ID == "" {
		return ""
	}
	return "https://open.spotify.com/artist/" + a.ID
}

// playHistoryItem is one entry of the recently-played response.
type playHistoryItem struct {
	PlayedAt string       `json:"played_at"`
	Track    SpotifyTrack `json:"track"`
}

// SpotifyService implements the Provider interface for Spotify API interactions.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	apiBaseURL string
	tokenURL   string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(creds shared.SpotifyConfig, client *http.Client) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-recently-played",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SpotifyService{
		config:     config,
		httpClient: client,
		// Spotify's rolling rate limit window allows well above this rate;
		// the limiter keeps the enrich fanout polite.
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		apiBaseURL: spotifyBaseURL,
		tokenURL:   spotifyTokenURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user consent.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for access + refresh tokens.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*models.Tokens, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.config.RedirectURL},
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
	}
	return s.postToken(ctx, form, "")
}

// RefreshToken uses a refresh token to obtain a new access token.
//
// When the provider rotates the refresh token, the new value is returned;
// otherwise the input token is echoed back so callers can persist
// unconditionally.
func (s *SpotifyService) RefreshToken(ctx context.Context, refreshToken string) (*models.Tokens, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
	}
	return s.postToken(ctx, form, refreshToken)
}

// postToken POSTs to the token endpoint and maps non-success statuses to
// [shared.ErrAuthFailed].
func (s *SpotifyService) postToken(ctx context.Context, form url.Values, fallbackRefresh string) (*models.Tokens, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: token endpoint status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var tokens models.Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = fallbackRefresh
	}
	return &tokens, nil
}

// doRequest performs an authenticated GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	var user UserProfile
	if err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RecentlyPlayed retrieves the user's recent play events, newest first.
//
// Only the first page is fetched; a burst of plays larger than one page
// between passes silently loses the oldest items of the burst.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)
	if afterMs > 0 {
		endpoint += "&after=" + strconv.FormatInt(afterMs, 10)
	}

	var response struct {
		Items []playHistoryItem `json:"items"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	records := make([]models.PlayRecord, 0, len(response.Items))
	for _, item := range response.Items {
		records = append(records, models.PlayRecord{
			PlayedAt:    item.PlayedAt,
			TrackID:     item.Track.ID,
			TrackName:   item.Track.Name,
			ArtistNames: item.Track.ArtistNames(),
			URL:         item.Track.CanonicalURL(),
		})
	}
	return records, nil
}

// SeveralTracks retrieves multiple tracks by their IDs (up to 50).
func (s *SpotifyService) SeveralTracks(ctx context.Context, accessToken string, trackIDs []string) ([]SpotifyTrack, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidInput)
	}
	if len(trackIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 track IDs allowed", shared.ErrInvalidInput)
	}

	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// SeveralArtists retrieves multiple artists by their IDs (up to 50).
func (s *SpotifyService) SeveralArtists(ctx context.Context, accessToken string, artistIDs []string) ([]SpotifyArtist, error) {
	if len(artistIDs) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrInvalidInput)
	}
	if len(artistIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 artist IDs allowed", shared.ErrInvalidInput)
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(artistIDs, ","))

	var response struct {
		Artists []SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}
	return response.Artists, nil
}
