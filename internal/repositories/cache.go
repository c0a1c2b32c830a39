package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/sheets"
)

// LoggedTrackIDs returns the distinct track ids present in the visible log,
// oldest first. Used by the enrich task to decide what to look up.
func (s *TenantStore) LoggedTrackIDs(ctx context.Context) ([]string, error) {
	ws, err := sheets.GetOrCreate(ctx, s.ss, LogSheetTitle, 1000, len(LogHeaders))
	if err != nil {
		return nil, err
	}

	// Spotify ID is the fourth log column.
	column, err := ws.ColValues(ctx, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to read log track ids: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for i, id := range column {
		if i == 0 || id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// CachedTrackIDs returns the ids already present in the raw track cache.
func (s *TenantStore) CachedTrackIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.cachedIDs(ctx, TracksSheetTitle, TrackCacheHeaders)
}

// CachedArtistIDs returns the ids already present in the raw artist cache.
func (s *TenantStore) CachedArtistIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.cachedIDs(ctx, ArtistsSheetTitle, ArtistCacheHeaders)
}

func (s *TenantStore) cachedIDs(ctx context.Context, title string, headers []string) (map[string]struct{}, error) {
	ws, err := sheets.GetOrCreate(ctx, s.ss, title, 1000, len(headers))
	if err != nil {
		return nil, err
	}

	column, err := ws.ColValues(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s ids: %w", title, err)
	}

	ids := make(map[string]struct{})
	for i, id := range column {
		if i == 0 || id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// CacheTracks appends raw track metadata rows, skipping ids already cached.
func (s *TenantStore) CacheTracks(ctx context.Context, tracks []models.CachedTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	existing, err := s.CachedTrackIDs(ctx)
	if err != nil {
		return err
	}

	ws, err := sheets.GetOrCreate(ctx, s.ss, TracksSheetTitle, 1000, len(TrackCacheHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, ws, TrackCacheHeaders); err != nil {
		return err
	}

	var rows [][]string
	for _, track := range tracks {
		if _, ok := existing[track.ID]; ok {
			continue
		}
		rows = append(rows, track.Values())
	}
	if len(rows) == 0 {
		return nil
	}
	if err := ws.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("failed to cache tracks: %w", err)
	}
	return nil
}

// CacheArtists appends raw artist metadata rows, skipping ids already cached.
func (s *TenantStore) CacheArtists(ctx context.Context, artists []models.CachedArtist) error {
	if len(artists) == 0 {
		return nil
	}

	existing, err := s.CachedArtistIDs(ctx)
	if err != nil {
		return err
	}

	ws, err := sheets.GetOrCreate(ctx, s.ss, ArtistsSheetTitle, 1000, len(ArtistCacheHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, ws, ArtistCacheHeaders); err != nil {
		return err
	}

	var rows [][]string
	for _, artist := range artists {
		if _, ok := existing[artist.ID]; ok {
			continue
		}
		rows = append(rows, artist.Values())
	}
	if len(rows) == 0 {
		return nil
	}
	if err := ws.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("failed to cache artists: %w", err)
	}
	return nil
}
