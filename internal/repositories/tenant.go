package repositories

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/sheets"
)

// Worksheet titles within a tenant sheet. Underscore-prefixed tabs are
// hidden from the user.
const (
	LogSheetTitle     = "log"
	StateSheetTitle   = "__app_state"
	DedupeSheetTitle  = "__dedupe"
	TracksSheetTitle  = "__tracks"
	ArtistsSheetTitle = "__artists"
)

// Exact header rows for each section. The schema manager repairs any
// divergence back to these.
var (
	LogHeaders         = []string{"Date", "Track", "Artist", "Spotify ID", "URL"}
	StateHeaders       = []string{"key", "value"}
	DedupeHeaders      = []string{"dedupe_key"}
	TrackCacheHeaders  = []string{"id", "name", "artists", "url", "cached_at"}
	ArtistCacheHeaders = []string{"id", "name", "genres", "url", "cached_at"}
)

// TenantStore wraps one tenant's spreadsheet with schema management and
// section-level operations.
type TenantStore struct {
	ss sheets.Spreadsheet
}

// NewTenantStore creates a TenantStore over an opened tenant spreadsheet.
func NewTenantStore(ss sheets.Spreadsheet) *TenantStore {
	return &TenantStore{ss: ss}
}

// SheetID returns the underlying spreadsheet identifier.
func (s *TenantStore) SheetID() string {
	return s.ss.ID()
}

// ensureHeaders overwrites the first row when it diverges from the expected
// column set.
func ensureHeaders(ctx context.Context, ws sheets.Worksheet, expected []string) error {
	values, err := ws.RowValues(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if slices.Equal(values, expected) {
		return nil
	}
	if err := ws.UpdateRow(ctx, 1, expected); err != nil {
		return fmt.Errorf("failed to repair header row: %w", err)
	}
	return nil
}

// EnsureSchema creates any missing section and repairs each section's header
// row. Idempotent; safe to call at the start of every pass.
//
// Hiding internal sections is best-effort: a backend that cannot hide tabs
// does not fail the operation. The timezone argument overrides the default
// timezone when the state section is seeded for the first time; pass "" to
// keep the default.
func (s *TenantStore) EnsureSchema(ctx context.Context, timezone string) error {
	logWS, err := sheets.GetOrCreate(ctx, s.ss, LogSheetTitle, 1000, len(LogHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, logWS, LogHeaders); err != nil {
		return err
	}

	stateWS, err := sheets.GetOrCreate(ctx, s.ss, StateSheetTitle, 50, 2)
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, stateWS, StateHeaders); err != nil {
		return err
	}
	if err := s.seedState(ctx, stateWS, timezone); err != nil {
		return err
	}
	s.hide(ctx, StateSheetTitle)

	dedupeWS, err := sheets.GetOrCreate(ctx, s.ss, DedupeSheetTitle, 1000, 1)
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, dedupeWS, DedupeHeaders); err != nil {
		return err
	}
	s.hide(ctx, DedupeSheetTitle)

	tracksWS, err := sheets.GetOrCreate(ctx, s.ss, TracksSheetTitle, 1000, len(TrackCacheHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, tracksWS, TrackCacheHeaders); err != nil {
		return err
	}
	s.hide(ctx, TracksSheetTitle)

	artistsWS, err := sheets.GetOrCreate(ctx, s.ss, ArtistsSheetTitle, 1000, len(ArtistCacheHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, artistsWS, ArtistCacheHeaders); err != nil {
		return err
	}
	s.hide(ctx, ArtistsSheetTitle)

	return nil
}

// hide is best-effort; unsupported backends are tolerated.
func (s *TenantStore) hide(ctx context.Context, title string) {
	_ = s.ss.SetHidden(ctx, title, true)
}

// seedState writes the default key/value rows when the state section holds
// no data beyond its header.
func (s *TenantStore) seedState(ctx context.Context, ws sheets.Worksheet, timezone string) error {
	rows, err := ws.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state section: %w", err)
	}
	if len(rows) > 1 {
		return nil
	}

	now := formatter.NowUTC()
	defaults := models.StateDefaults()
	seed := make([][]string, 0, len(models.StateKeys))
	for _, key := range models.StateKeys {
		value := defaults[key]
		switch key {
		case models.StateKeyCreatedAt, models.StateKeyUpdatedAt:
			value = now
		case models.StateKeyTimezone:
			if timezone != "" {
				value = timezone
			}
		}
		seed = append(seed, []string{key, value})
	}

	if err := ws.AppendRows(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed state defaults: %w", err)
	}
	return nil
}

// ReadState reads the full key/value state section, backfilling missing keys
// with their documented defaults.
func (s *TenantStore) ReadState(ctx context.Context) (models.AppState, error) {
	ws, err := sheets.GetOrCreate(ctx, s.ss, StateSheetTitle, 50, 2)
	if err != nil {
		return models.AppState{}, err
	}
	if err := ensureHeaders(ctx, ws, StateHeaders); err != nil {
		return models.AppState{}, err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return models.AppState{}, fmt.Errorf("failed to read state section: %w", err)
	}

	return models.StateFromMap(stateMap(rows)), nil
}

// WriteState applies updates to the state section, preserving untouched keys
// and backfilling defaults.
//
// The whole section is rewritten; this is a read-modify-write with no
// column-level atomicity.
func (s *TenantStore) WriteState(ctx context.Context, updates map[string]string) error {
	ws, err := sheets.GetOrCreate(ctx, s.ss, StateSheetTitle, 50, 2)
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, ws, StateHeaders); err != nil {
		return err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state section: %w", err)
	}

	current := stateMap(rows)
	for k, v := range updates {
		current[k] = v
	}
	for key, value := range models.StateDefaults() {
		if _, ok := current[key]; !ok {
			current[key] = value
		}
	}

	// Recognized keys first in canonical order, then any extras for forward
	// compatibility with unknown writers.
	data := make([][]string, 0, len(current))
	for _, key := range models.StateKeys {
		data = append(data, []string{key, current[key]})
		delete(current, key)
	}
	extras := make([]string, 0, len(current))
	for key := range current {
		extras = append(extras, key)
	}
	slices.Sort(extras)
	for _, key := range extras {
		data = append(data, []string{key, current[key]})
	}

	if err := ws.Resize(ctx, len(data)+1, 2); err != nil {
		return fmt.Errorf("failed to resize state section: %w", err)
	}
	if err := ws.UpdateRows(ctx, 2, data); err != nil {
		return fmt.Errorf("failed to write state section: %w", err)
	}
	return nil
}

// stateMap converts raw section rows (including header) to a key/value map.
func stateMap(rows [][]string) map[string]string {
	data := make(map[string]string)
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		data[row[0]] = value
	}
	return data
}

// AppendLogRows appends accepted play rows to the visible log section.
func (s *TenantStore) AppendLogRows(ctx context.Context, rows []models.LogRow) error {
	if len(rows) == 0 {
		return nil
	}

	ws, err := sheets.GetOrCreate(ctx, s.ss, LogSheetTitle, 1000, len(LogHeaders))
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, ws, LogHeaders); err != nil {
		return err
	}

	values := make([][]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Values())
	}
	if err := ws.AppendRows(ctx, values); err != nil {
		return fmt.Errorf("failed to append log rows: %w", err)
	}
	return nil
}

// AppendDedupeKeys appends identity keys to the dedupe section.
func (s *TenantStore) AppendDedupeKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	ws, err := sheets.GetOrCreate(ctx, s.ss, DedupeSheetTitle, 1000, 1)
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, ws, DedupeHeaders); err != nil {
		return err
	}

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key})
	}
	if err := ws.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("failed to append dedupe keys: %w", err)
	}
	return nil
}

// ReadRecentDedupeKeys returns at most limit most-recently-appended keys.
//
// Limiting the read bounds memory and latency at the cost of dedup
// completeness for plays older than the window.
func (s *TenantStore) ReadRecentDedupeKeys(ctx context.Context, limit int) ([]string, error) {
	ws, err := sheets.GetOrCreate(ctx, s.ss, DedupeSheetTitle, 1000, 1)
	if err != nil {
		return nil, err
	}
	if err := ensureHeaders(ctx, ws, DedupeHeaders); err != nil {
		return nil, err
	}

	column, err := ws.ColValues(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read dedupe section: %w", err)
	}

	if len(column) <= 1 {
		return nil, nil
	}
	keys := column[1:]
	if limit <= 0 || len(keys) <= limit {
		return keys, nil
	}
	return keys[len(keys)-limit:], nil
}
