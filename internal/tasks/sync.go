// package tasks implements listening-history sync operations against tenant
// spreadsheets.
//
// The core abstraction is SyncEngine, which orchestrates per-tenant sync
// passes, batch runs over the registry, and metadata enrichment. Operations
// emit progress updates via channels for non-blocking status reporting to the
// CLI layer.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playlog/internal/dedupe"
	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/sheets"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/desertthunder/playlog/internal/vault"
)

// PassResult contains all data from a single tenant sync pass.
type PassResult struct {
	SheetID   string // Tenant spreadsheet id
	AccountID string // Provider account owning the history
	Fetched   int    // Play events returned by the provider
	Skipped   int    // Events dropped as duplicates or malformed
	Appended  int    // New rows written to the log
	Cursor    int64  // Sync cursor after the pass, epoch milliseconds
	DryRun    bool   // True when writes were suppressed
}

// TenantResult pairs one registry tenant with its pass outcome.
type TenantResult struct {
	SheetID string
	Result  *PassResult // nil when the pass failed
	Err     error
}

// BatchReport summarizes a sync pass over every enabled tenant.
type BatchReport struct {
	Results   []TenantResult
	Succeeded int
	Failed    int
}

// EngineConfig carries the dependencies for a SyncEngine.
type EngineConfig struct {
	Provider services.Provider
	Opener   sheets.Opener
	Vault    *vault.Vault
	Registry *repositories.Registry
	Worker   shared.WorkerConfig
	Logger   *log.Logger
	DryRun   bool
}

// SyncEngine orchestrates tenant history syncs. Tenants are isolated: a
// failure in one pass never aborts the batch.
type SyncEngine struct {
	provider services.Provider
	opener   sheets.Opener
	vault    *vault.Vault
	registry *repositories.Registry
	worker   shared.WorkerConfig
	logger   *log.Logger
	dryRun   bool
}

// NewSyncEngine creates a SyncEngine from the provided dependencies.
func NewSyncEngine(cfg EngineConfig) (*SyncEngine, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: provider not initialized", shared.ErrInvalidConfig)
	}
	if cfg.Opener == nil {
		return nil, fmt.Errorf("%w: spreadsheet opener not initialized", shared.ErrInvalidConfig)
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("%w: credential vault not initialized", shared.ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncEngine{
		provider: cfg.Provider,
		opener:   cfg.Opener,
		vault:    cfg.Vault,
		registry: cfg.Registry,
		worker:   cfg.Worker,
		logger:   logger,
		dryRun:   cfg.DryRun,
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// authorize decrypts the tenant's stored refresh token and exchanges it for a
// fresh access token. A rotated refresh token is re-encrypted and persisted
// before the tokens are returned, even during a dry run, because the provider
// may invalidate the old token on use.
func (e *SyncEngine) authorize(ctx context.Context, store *repositories.TenantStore, state models.AppState) (*models.Tokens, error) {
	if state.RefreshTokenEnc == "" {
		return nil, fmt.Errorf("%w: sheet %s", shared.ErrNoRefreshToken, store.SheetID())
	}

	refreshToken, err := e.vault.Decrypt(state.RefreshTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	tokens, err := e.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if tokens.RefreshToken != "" && tokens.RefreshToken != refreshToken {
		enc, err := e.vault.Encrypt(tokens.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt rotated refresh token: %w", err)
		}
		update := map[string]string{models.StateKeyRefreshTokenEnc: enc}
		if err := store.WriteState(ctx, update); err != nil {
			return nil, fmt.Errorf("persist rotated refresh token: %w", err)
		}
	}

	return tokens, nil
}

// SyncTenant runs one sync pass for the tenant spreadsheet: refresh the
// token, fetch recent plays above the lookback floor, drop duplicates against
// the dedupe window, append new rows, then advance the cursor.
func (e *SyncEngine) SyncTenant(ctx context.Context, progress chan<- ProgressUpdate, sheetID string) (*PassResult, error) {
	logger := shared.WithLogger(e.logger, "sheet", sheetID)
	e.sendProgress(progress, preparingUpdate(sheetID))

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

	accountID := state.SpotifyUserID
	if accountID == "" {
		profile, err := e.provider.UserProfile(ctx, tokens.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("fetch profile: %w", err)
		}
		accountID = profile.ID
		if !e.dryRun {
			update := map[string]string{models.StateKeySpotifyUserID: accountID}
			if err := store.WriteState(ctx, update); err != nil {
				return nil, fmt.Errorf("persist account id: %w", err)
			}
		}
	}

	// The fetch floor sits a lookback window behind the cursor so plays the
	// provider delivered late are still picked up; the dedupe window absorbs
	// the resulting overlap.
	var afterMs int64
	if state.LastSyncedAfter > 0 {
		afterMs = state.LastSyncedAfter - int64(e.worker.LookbackMinutes)*60_000
		if afterMs < 0 {
			afterMs = 0
		}
	}

	e.sendProgress(progress, fetchingUpdate(afterMs))
	records, err := e.provider.RecentlyPlayed(ctx, tokens.AccessToken, afterMs, e.worker.HistoryPageLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	logger.Debug("fetched history", "events", len(records), "after_ms", afterMs)

	recent, err := store.ReadRecentDedupeKeys(ctx, e.worker.DedupeWindowRows)
	if err != nil {
		return nil, fmt.Errorf("read dedupe window: %w", err)
	}
	window := dedupe.NewWindow(recent)
	e.sendProgress(progress, deduplicatingUpdate(len(records), window.Len()))

	loc := formatter.Location(state.Timezone)
	result := &PassResult{
		SheetID:   sheetID,
		AccountID: accountID,
		Fetched:   len(records),
		Cursor:    state.LastSyncedAfter,
		DryRun:    e.dryRun,
	}

	var (
		rows      []models.LogRow
		keys      []string
		maxPlayed int64
	)
	for _, rec := range records {
		if rec.PlayedAt == "" || rec.TrackID == "" {
			result.Skipped++
			continue
		}

		key := dedupe.Key(accountID, rec.PlayedAt, rec.TrackID)
		if window.Contains(key) {
			result.Skipped++
			continue
		}

		date, err := formatter.FormatLogDate(rec.PlayedAt, loc)
		if err != nil {
			result.Skipped++
			continue
		}
		millis, err := formatter.PlayedAtMillis(rec.PlayedAt)
		if err != nil {
			result.Skipped++
			continue
		}

		window.Add(key)
		keys = append(keys, key)
		rows = append(rows, models.LogRow{
			Date:    date,
			Track:   rec.TrackName,
			Artist:  rec.ArtistNames,
			TrackID: rec.TrackID,
			URL:     rec.URL,
		})
		if millis > maxPlayed {
			maxPlayed = millis
		}
	}

	result.Appended = len(rows)

	if e.dryRun {
		if maxPlayed > result.Cursor {
			result.Cursor = maxPlayed
		}
		return result, nil
	}

	if len(rows) > 0 {
		e.sendProgress(progress, appendingUpdate(len(rows)))
		if err := store.AppendLogRows(ctx, rows); err != nil {
			return nil, fmt.Errorf("append log rows: %w", err)
		}
		if err := store.AppendDedupeKeys(ctx, keys); err != nil {
			return nil, fmt.Errorf("append dedupe keys: %w", err)
		}
	}

	updates := map[string]string{
		models.StateKeyUpdatedAt: formatter.NowUTC(),
		models.StateKeyLastError: "",
	}
	// The cursor only moves forward. Lookback refetches can surface plays
	// older than what a previous pass already recorded.
	if maxPlayed > state.LastSyncedAfter {
		result.Cursor = maxPlayed
		updates[models.StateKeyLastSyncedAfter] = fmt.Sprintf("%d", maxPlayed)
	}

	e.sendProgress(progress, committingUpdate(result.Cursor))
	if err := store.WriteState(ctx, updates); err != nil {
		return nil, fmt.Errorf("write state: %w", err)
	}

	logger.Info("pass committed", "appended", result.Appended, "skipped", result.Skipped, "cursor", result.Cursor)
	return result, nil
}

// SyncAll runs a pass for every enabled registry tenant. Per-tenant failures
// are recorded in the registry's last_error column and do not stop the batch.
func (e *SyncEngine) SyncAll(ctx context.Context, progress chan<- ProgressUpdate) (*BatchReport, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("%w: tenant registry not initialized", shared.ErrInvalidConfig)
	}

	sheetIDs, err := e.registry.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled tenants: %w", err)
	}

	report := &BatchReport{Results: make([]TenantResult, 0, len(sheetIDs))}
	for _, sheetID := range sheetIDs {
		result, err := e.SyncTenant(ctx, progress, sheetID)
		if err != nil {
			e.logger.Error("tenant sync failed", "sheet", sheetID, "error", err)
			report.Failed++
			report.Results = append(report.Results, TenantResult{SheetID: sheetID, Err: err})
			if !e.dryRun {
				status := map[string]string{"last_error": err.Error()}
				if updateErr := e.registry.UpdateStatus(ctx, sheetID, status); updateErr != nil {
					report.Results[len(report.Results)-1].Err = fmt.Errorf("%w (status update failed: %v)", err, updateErr)
				}
			}
			continue
		}

		if !e.dryRun {
			status := map[string]string{
				"last_sync_at": formatter.NowUTC(),
				"last_error":   "",
			}
			if err := e.registry.UpdateStatus(ctx, sheetID, status); err != nil {
				e.logger.Warn("registry status write failed", "sheet", sheetID, "error", err)
				report.Failed++
				report.Results = append(report.Results, TenantResult{
					SheetID: sheetID,
					Result:  result,
					Err:     fmt.Errorf("update registry status for %s: %w", sheetID, err),
				})
				continue
			}
		}

		report.Succeeded++
		report.Results = append(report.Results, TenantResult{SheetID: sheetID, Result: result})
	}

	return report, nil
}
