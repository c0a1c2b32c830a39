// package models defines the data model for the play logger service
package models

import "strconv"

// Tokens represents an OAuth token pair returned by the provider's token endpoint.
//
// RefreshToken may differ from the refresh token sent in the request
// (rotation); callers must persist the returned value immediately.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// PlayRecord represents one normalized play event from the history API.
//
// Never persisted in this shape; the engine turns accepted records into
// [LogRow] values and dedupe keys.
type PlayRecord struct {
	PlayedAt    string // ISO-8601, UTC
	TrackID     string
	TrackName   string
	ArtistNames string // comma-joined
	URL         string
}

// LogRow is one persisted, human-facing row of the visible log section.
type LogRow struct {
	Date    string // localized to the tenant's timezone
	Track   string
	Artist  string
	TrackID string
	URL     string
}

// Values returns the row in sheet column order: Date, Track, Artist, Spotify ID, URL.
func (r LogRow) Values() []string {
	return []string{r.Date, r.Track, r.Artist, r.TrackID, r.URL}
}

// Tenant represents one row of the registry worksheet.
type Tenant struct {
	SheetID    string
	Enabled    bool
	CreatedAt  string
	LastSeenAt string
	LastSyncAt string
	LastError  string
}

// Values returns the row in registry column order.
func (t Tenant) Values() []string {
	return []string{t.SheetID, strconv.FormatBool(t.Enabled), t.CreatedAt, t.LastSeenAt, t.LastSyncAt, t.LastError}
}

// AppState represents a tenant's hidden key/value state section.
//
// The full key set is always present in the sheet; [StateDefaults] backfills
// keys missing from older sheets so the shape stays forward-compatible.
type AppState struct {
	Enabled         bool
	Timezone        string
	LastSyncedAfter int64 // epoch milliseconds, monotonically non-decreasing
	SpotifyUserID   string
	RefreshTokenEnc string
	CreatedAt       string
	UpdatedAt       string
	LastError       string
}

// State section keys, in sheet order.
const (
	StateKeyEnabled         = "enabled"
	StateKeyTimezone        = "timezone"
	StateKeyLastSyncedAfter = "last_synced_after_ts"
	StateKeySpotifyUserID   = "spotify_user_id"
	StateKeyRefreshTokenEnc = "refresh_token_enc"
	StateKeyCreatedAt       = "created_at"
	StateKeyUpdatedAt       = "updated_at"
	StateKeyLastError       = "last_error"
)

// StateKeys lists every recognized state key in sheet order.
var StateKeys = []string{
	StateKeyEnabled,
	StateKeyTimezone,
	StateKeyLastSyncedAfter,
	StateKeySpotifyUserID,
	StateKeyRefreshTokenEnc,
	StateKeyCreatedAt,
	StateKeyUpdatedAt,
	StateKeyLastError,
}

// StateDefaults returns the documented default value for every state key.
//
// created_at and updated_at are stamped by the schema manager on first
// initialization; their default here is the empty string.
func StateDefaults() map[string]string {
	return map[string]string{
		StateKeyEnabled:         "false",
		StateKeyTimezone:        "UTC",
		StateKeyLastSyncedAfter: "0",
		StateKeySpotifyUserID:   "",
		StateKeyRefreshTokenEnc: "",
		StateKeyCreatedAt:       "",
		StateKeyUpdatedAt:       "",
		StateKeyLastError:       "",
	}
}

// StateFromMap builds an AppState from raw key/value rows, backfilling any
// missing key from [StateDefaults].
func StateFromMap(data map[string]string) AppState {
	defaults := StateDefaults()
	get := func(key string) string {
		if v, ok := data[key]; ok {
			return v
		}
		return defaults[key]
	}

	ts, err := strconv.ParseInt(get(StateKeyLastSyncedAfter), 10, 64)
	if err != nil || ts < 0 {
		ts = 0
	}

	return AppState{
		Enabled:         get(StateKeyEnabled) == "true",
		Timezone:        get(StateKeyTimezone),
		LastSyncedAfter: ts,
		SpotifyUserID:   get(StateKeySpotifyUserID),
		RefreshTokenEnc: get(StateKeyRefreshTokenEnc),
		CreatedAt:       get(StateKeyCreatedAt),
		UpdatedAt:       get(StateKeyUpdatedAt),
		LastError:       get(StateKeyLastError),
	}
}

// CachedTrack is one row of the hidden raw track cache section.
type CachedTrack struct {
	ID       string
	Name     string
	Artists  string
	URL      string
	CachedAt string
}

// Values returns the row in cache column order.
func (c CachedTrack) Values() []string {
	return []string{c.ID, c.Name, c.Artists, c.URL, c.CachedAt}
}

// CachedArtist is one row of the hidden raw artist cache section.
type CachedArtist struct {
	ID       string
	Name     string
	Genres   string
	URL      string
	CachedAt string
}

// Values returns the row in cache column order.
func (c CachedArtist) Values() []string {
	return []string{c.ID, c.Name, c.Genres, c.URL, c.CachedAt}
}
