package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/sheets"
	"github.com/desertthunder/playlog/internal/shared"
)

// RegistrySheetTitle is the worksheet holding the tenant directory.
const RegistrySheetTitle = "registry"

// RegistryHeaders is the exact registry header row.
var RegistryHeaders = []string{"user_sheet_id", "enabled", "created_at", "last_seen_at", "last_sync_at", "last_error"}

// Registry is the directory of known tenants driving the outer sync loop.
//
// Rows are never deleted by the system; removal is a manual operation on the
// sheet itself.
type Registry struct {
	ss sheets.Spreadsheet
}

// NewRegistry creates a Registry over the opened registry spreadsheet.
func NewRegistry(ss sheets.Spreadsheet) *Registry {
	return &Registry{ss: ss}
}

func (r *Registry) worksheet(ctx context.Context) (sheets.Worksheet, error) {
	ws, err := sheets.GetOrCreate(ctx, r.ss, RegistrySheetTitle, 1000, len(RegistryHeaders))
	if err != nil {
		return nil, err
	}
	if err := ensureHeaders(ctx, ws, RegistryHeaders); err != nil {
		return nil, err
	}
	return ws, nil
}

// findRow returns the 1-based sheet row holding the tenant, or 0 when absent.
func findRow(rows [][]string, sheetID string) int {
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(row[0]) == sheetID {
			return i + 1
		}
	}
	return 0
}

// EnsureEntry upserts a registry row for the tenant: when absent, a disabled
// row is appended with seeded timestamps; when present, only last_seen_at is
// refreshed.
func (r *Registry) EnsureEntry(ctx context.Context, sheetID string) error {
	ws, err := r.worksheet(ctx)
	if err != nil {
		return err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	now := formatter.NowUTC()
	if rowNum := findRow(rows, sheetID); rowNum > 0 {
		return r.updateRow(ctx, ws, rowNum, map[string]string{"last_seen_at": now})
	}

	tenant := models.Tenant{SheetID: sheetID, Enabled: false, CreatedAt: now, LastSeenAt: now}
	if err := ws.AppendRows(ctx, [][]string{tenant.Values()}); err != nil {
		return fmt.Errorf("failed to append registry entry: %w", err)
	}
	return nil
}

// SetEnabled updates the tenant's enabled flag, creating the entry first if
// it does not exist.
func (r *Registry) SetEnabled(ctx context.Context, sheetID string, enabled bool) error {
	ws, err := r.worksheet(ctx)
	if err != nil {
		return err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	rowNum := findRow(rows, sheetID)
	if rowNum == 0 {
		if err := r.EnsureEntry(ctx, sheetID); err != nil {
			return err
		}
		rows, err = ws.Rows(ctx)
		if err != nil {
			return fmt.Errorf("failed to read registry: %w", err)
		}
		rowNum = findRow(rows, sheetID)
		if rowNum == 0 {
			return fmt.Errorf("%w: %s", shared.ErrTenantNotFound, sheetID)
		}
	}

	value := "false"
	if enabled {
		value = "true"
	}
	return r.updateRow(ctx, ws, rowNum, map[string]string{"enabled": value})
}

// ListEnabled returns the enabled tenant sheet ids in registry row order.
func (r *Registry) ListEnabled(ctx context.Context) ([]string, error) {
	tenants, err := r.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, t := range tenants {
		if t.Enabled && t.SheetID != "" {
			ids = append(ids, t.SheetID)
		}
	}
	return ids, nil
}

// ListTenants returns every registry row in insertion order.
func (r *Registry) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	ws, err := r.worksheet(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var tenants []models.Tenant
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		padded := pad(row, len(RegistryHeaders))
		tenants = append(tenants, models.Tenant{
			SheetID:    strings.TrimSpace(padded[0]),
			Enabled:    strings.EqualFold(padded[1], "true"),
			CreatedAt:  padded[2],
			LastSeenAt: padded[3],
			LastSyncAt: padded[4],
			LastError:  padded[5],
		})
	}
	return tenants, nil
}

// UpdateStatus applies a partial update (last_sync_at, last_error) to the
// tenant's registry row via whole-row read-modify-write.
func (r *Registry) UpdateStatus(ctx context.Context, sheetID string, updates map[string]string) error {
	ws, err := r.worksheet(ctx)
	if err != nil {
		return err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	rowNum := findRow(rows, sheetID)
	if rowNum == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTenantNotFound, sheetID)
	}
	return r.updateRow(ctx, ws, rowNum, updates)
}

// updateRow rewrites the full row with the given columns replaced.
func (r *Registry) updateRow(ctx context.Context, ws sheets.Worksheet, rowNum int, updates map[string]string) error {
	headers, err := ws.RowValues(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to read registry headers: %w", err)
	}

	values, err := ws.RowValues(ctx, rowNum)
	if err != nil {
		return fmt.Errorf("failed to read registry row: %w", err)
	}
	values = pad(values, len(headers))

	for i, header := range headers {
		if value, ok := updates[header]; ok {
			values[i] = value
		}
	}

	if err := ws.UpdateRow(ctx, rowNum, values); err != nil {
		return fmt.Errorf("failed to update registry row: %w", err)
	}
	return nil
}

// pad extends a row with empty cells up to the given width.
func pad(row []string, width int) []string {
	out := append([]string(nil), row...)
	for len(out) < width {
		out = append(out, "")
	}
	return out
}
