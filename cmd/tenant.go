package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// TenantAdd provisions a tenant sheet's schema and registers it, disabled.
func (r *Runner) TenantAdd(ctx context.Context, cmd *cli.Command) error {
	sheetID := cmd.StringArg("sheet")
	timezone := cmd.String("timezone")

	if sheetID == "" {
		return fmt.Errorf("%w: sheet id", shared.ErrMissingArgument)
	}

	opener, err := r.requireOpener()
	if err != nil {
		return err
	}

	r.logger.Info("provisioning tenant sheet", "sheet", sheetID, "timezone", timezone)

	ss, err := opener.Open(ctx, sheetID)
	if err != nil {
		return fmt.Errorf("open sheet %s: %w", sheetID, err)
	}
	store := repositories.NewTenantStore(ss)
	if err := store.EnsureSchema(ctx, timezone); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	registry, err := r.openRegistry(ctx)
	if err != nil {
		return err
	}
	if err := registry.EnsureEntry(ctx, sheetID); err != nil {
		return fmt.Errorf("register tenant: %w", err)
	}

	r.writePlain("✓ Tenant sheet %s provisioned\n", sheetID)
	r.writePlain("Next: playlog auth url, then playlog auth exchange --sheet %s <code>\n", sheetID)
	return nil
}

// TenantEnable turns a tenant on for batch syncs.
func (r *Runner) TenantEnable(ctx context.Context, cmd *cli.Command) error {
	return r.setTenantEnabled(ctx, cmd.StringArg("sheet"), true)
}

// TenantDisable turns a tenant off without removing its registry entry.
func (r *Runner) TenantDisable(ctx context.Context, cmd *cli.Command) error {
	return r.setTenantEnabled(ctx, cmd.StringArg("sheet"), false)
}

func (r *Runner) setTenantEnabled(ctx context.Context, sheetID string, enabled bool) error {
	if sheetID == "" {
		return fmt.Errorf("%w: sheet id", shared.ErrMissingArgument)
	}

	registry, err := r.openRegistry(ctx)
	if err != nil {
		return err
	}
	if err := registry.SetEnabled(ctx, sheetID, enabled); err != nil {
		return fmt.Errorf("update registry: %w", err)
	}

	// Mirror the flag into the tenant's own state section so the sheet is
	// self-describing.
	if opener, err := r.requireOpener(); err == nil {
		if ss, err := opener.Open(ctx, sheetID); err == nil {
			store := repositories.NewTenantStore(ss)
			update := map[string]string{models.StateKeyEnabled: fmt.Sprintf("%t", enabled)}
			if err := store.WriteState(ctx, update); err != nil {
				r.logger.Warn("failed to mirror enabled flag", "sheet", sheetID, "error", err)
			}
		}
	}

	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	r.logger.Info("tenant "+verb, "sheet", sheetID)
	return r.writePlain("✓ Tenant %s %s\n", sheetID, verb)
}

// TenantList prints every registered tenant with its sync status.
func (r *Runner) TenantList(ctx context.Context, cmd *cli.Command) error {
	registry, err := r.openRegistry(ctx)
	if err != nil {
		return err
	}

	tenants, err := registry.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if cmd.Bool("json") {
		type tenantRow struct {
			SheetID    string `json:"sheet_id"`
			Enabled    bool   `json:"enabled"`
			CreatedAt  string `json:"created_at,omitempty"`
			LastSeenAt string `json:"last_seen_at,omitempty"`
			LastSyncAt string `json:"last_sync_at,omitempty"`
			LastError  string `json:"last_error,omitempty"`
		}
		rows := make([]tenantRow, 0, len(tenants))
		for _, t := range tenants {
			rows = append(rows, tenantRow{
				SheetID:    t.SheetID,
				Enabled:    t.Enabled,
				CreatedAt:  t.CreatedAt,
				LastSeenAt: t.LastSeenAt,
				LastSyncAt: t.LastSyncAt,
				LastError:  t.LastError,
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(tenants) == 0 {
		return r.writePlain("No tenants registered\n")
	}

	if err := r.writePlainHeader(fmt.Sprintf("Tenants (%d)", len(tenants))); err != nil {
		return err
	}
	for _, t := range tenants {
		status := "disabled"
		if t.Enabled {
			status = "enabled"
		}
		r.writePlain("%s  [%s]", t.SheetID, status)
		if t.LastSyncAt != "" {
			r.writePlain("  last sync %s", t.LastSyncAt)
		}
		if t.LastError != "" {
			r.writePlain("  ✗ %s", t.LastError)
		}
		r.writePlain("\n")
	}
	return nil
}
