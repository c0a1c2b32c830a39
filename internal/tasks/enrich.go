package tasks

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
)

// metadataBatchSize matches the provider's several-tracks/artists id limit.
const metadataBatchSize = 50

// EnrichResult contains all data from a metadata enrichment pass.
type EnrichResult struct {
	SheetID       string
	TracksCached  int
	ArtistsCached int
}

// EnrichTenant backfills the hidden raw metadata caches for tracks that
// appear in the tenant's log but have no cache row yet, then does the same
// for the artists those tracks reference. Batches are fetched concurrently.
func (e *SyncEngine) EnrichTenant(ctx context.Context, progress chan<- ProgressUpdate, sheetID string) (*EnrichResult, error) {
	ss, err := e.opener.Open(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", sheetID, err)
	}

	store := repositories.NewTenantStore(ss)
	if err := store.EnsureSchema(ctx, ""); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	state, err := store.ReadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	e.sendProgress(progress, authenticatingUpdate(state.SpotifyUserID))
	tokens, err := e.authorize(ctx, store, state)
	if err != nil {
		return nil, err
	}

	result := &EnrichResult{SheetID: sheetID}

	logged, err := store.LoggedTrackIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read logged track ids: %w", err)
	}
	cachedTracks, err := store.CachedTrackIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read track cache: %w", err)
	}

	var missing []string
	for _, id := range logged {
		if _, ok := cachedTracks[id]; !ok {
			missing = append(missing, id)
		}
	}

	tracks, err := e.fetchTracks(ctx, progress, tokens.AccessToken, missing)
	if err != nil {
		return nil, err
	}

	if len(tracks) > 0 {
		now := formatter.NowUTC()
		rows := make([]models.CachedTrack, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, models.CachedTrack{
				ID:       t.ID,
				Name:     t.Name,
				Artists:  t.ArtistNames(),
				URL:      t.CanonicalURL(),
				CachedAt: now,
			})
		}
		if !e.dryRun {
			if err := store.CacheTracks(ctx, rows); err != nil {
				return nil, fmt.Errorf("cache tracks: %w", err)
			}
		}
		result.TracksCached = len(rows)
	}

	cachedArtists, err := store.CachedArtistIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read artist cache: %w", err)
	}

	artistIDs := missingArtistIDs(tracks, cachedArtists)
	artists, err := e.fetchArtists(ctx, progress, tokens.AccessToken, artistIDs)
	if err != nil {
		return nil, err
	}

	if len(artists) > 0 {
		now := formatter.NowUTC()
		rows := make([]models.CachedArtist, 0, len(artists))
		for _, a := range artists {
			rows = append(rows, models.CachedArtist{
				ID:       a.ID,
				Name:     a.Name,
				Genres:   strings.Join(a.Genres, ", "),
				URL:      a.CanonicalURL(),
				CachedAt: now,
			})
		}
		if !e.dryRun {
			if err := store.CacheArtists(ctx, rows); err != nil {
				return nil, fmt.Errorf("cache artists: %w", err)
			}
		}
		result.ArtistsCached = len(rows)
	}

	shared.WithLogger(e.logger, "sheet", sheetID).Debug("enrichment pass finished",
		"tracks", result.TracksCached, "artists", result.ArtistsCached)
	return result, nil
}

// missingArtistIDs collects distinct artist ids referenced by the fetched
// tracks that have no cache row yet, preserving first-seen order.
func missingArtistIDs(tracks []services.SpotifyTrack, cached map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range tracks {
		for _, a := range t.Artists {
			if a.ID == "" {
				continue
			}
			if _, ok := cached[a.ID]; ok {
				continue
			}
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (e *SyncEngine) fetchTracks(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, ids []string) ([]services.SpotifyTrack, error) {
	batches := chunk(ids, metadataBatchSize)
	results := make([][]services.SpotifyTrack, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.worker.EnrichWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			e.sendProgress(progress, enrichingUpdate(i+1, len(batches), "track"))
			tracks, err := e.provider.SeveralTracks(gctx, accessToken, batch)
			if err != nil {
				return fmt.Errorf("fetch tracks batch %d: %w", i+1, err)
			}
			results[i] = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tracks []services.SpotifyTrack
	for _, r := range results {
		tracks = append(tracks, r...)
	}
	return tracks, nil
}

func (e *SyncEngine) fetchArtists(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, ids []string) ([]services.SpotifyArtist, error) {
	batches := chunk(ids, metadataBatchSize)
	results := make([][]services.SpotifyArtist, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.worker.EnrichWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			e.sendProgress(progress, enrichingUpdate(i+1, len(batches), "artist"))
			artists, err := e.provider.SeveralArtists(gctx, accessToken, batch)
			if err != nil {
				return fmt.Errorf("fetch artists batch %d: %w", i+1, err)
			}
			results[i] = artists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var artists []services.SpotifyArtist
	for _, r := range results {
		artists = append(artists, r...)
	}
	return artists, nil
}

func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
