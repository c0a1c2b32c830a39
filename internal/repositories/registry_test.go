package repositories

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/playlog/internal/sheets"
	"github.com/desertthunder/playlog/internal/shared"
)

func setupRegistry(t *testing.T) (*Registry, *sheets.MemorySpreadsheet) {
	t.Helper()
	ss := sheets.NewMemorySpreadsheet("registry-sheet")
	return NewRegistry(ss), ss
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("EnsureEntry", func(t *testing.T) {
		t.Run("Creates Disabled Entry", func(t *testing.T) {
			registry, _ := setupRegistry(t)

			if err := registry.EnsureEntry(ctx, "sheet-a"); err != nil {
				t.Fatalf("ensure entry failed: %v", err)
			}

			tenants, err := registry.ListTenants(ctx)
			if err != nil {
				t.Fatalf("list tenants failed: %v", err)
			}
			if len(tenants) != 1 {
				t.Fatalf("expected 1 tenant, got %d", len(tenants))
			}

			tenant := tenants[0]
			if tenant.SheetID != "sheet-a" {
				t.Errorf("expected sheet-a, got %s", tenant.SheetID)
			}
			if tenant.Enabled {
				t.Error("new entries must start disabled")
			}
			if tenant.CreatedAt == "" || tenant.LastSeenAt == "" {
				t.Error("expected seeded timestamps")
			}
			if tenant.LastSyncAt != "" || tenant.LastError != "" {
				t.Error("expected empty sync status on creation")
			}
		})

		t.Run("Touch Is Idempotent", func(t *testing.T) {
			registry, _ := setupRegistry(t)

			if err := registry.EnsureEntry(ctx, "sheet-a"); err != nil {
				t.Fatalf("ensure entry failed: %v", err)
			}
			before, _ := registry.ListTenants(ctx)

			if err := registry.EnsureEntry(ctx, "sheet-a"); err != nil {
				t.Fatalf("second ensure failed: %v", err)
			}
			after, _ := registry.ListTenants(ctx)

			if len(after) != 1 {
				t.Fatalf("expected 1 tenant after touch, got %d", len(after))
			}
			if after[0].CreatedAt != before[0].CreatedAt {
				t.Error("touch must not change created_at")
			}
		})
	})

	t.Run("SetEnabled", func(t *testing.T) {
		t.Run("Existing Entry", func(t *testing.T) {
			registry, _ := setupRegistry(t)
			registry.EnsureEntry(ctx, "sheet-a")

			if err := registry.SetEnabled(ctx, "sheet-a", true); err != nil {
				t.Fatalf("set enabled failed: %v", err)
			}

			tenants, _ := registry.ListTenants(ctx)
			if !tenants[0].Enabled {
				t.Error("expected tenant to be enabled")
			}
		})

		t.Run("Auto Creates Missing Entry", func(t *testing.T) {
			registry, _ := setupRegistry(t)

			if err := registry.SetEnabled(ctx, "sheet-new", true); err != nil {
				t.Fatalf("set enabled failed: %v", err)
			}

			ids, err := registry.ListEnabled(ctx)
			if err != nil {
				t.Fatalf("list enabled failed: %v", err)
			}
			if !reflect.DeepEqual(ids, []string{"sheet-new"}) {
				t.Errorf("expected sheet-new enabled, got %v", ids)
			}
		})

		t.Run("Disable", func(t *testing.T) {
			registry, _ := setupRegistry(t)
			registry.SetEnabled(ctx, "sheet-a", true)

			if err := registry.SetEnabled(ctx, "sheet-a", false); err != nil {
				t.Fatalf("disable failed: %v", err)
			}

			ids, _ := registry.ListEnabled(ctx)
			if len(ids) != 0 {
				t.Errorf("expected no enabled tenants, got %v", ids)
			}
		})
	})

	t.Run("ListEnabled Preserves Insertion Order", func(t *testing.T) {
		registry, _ := setupRegistry(t)

		for _, id := range []string{"sheet-c", "sheet-a", "sheet-b"} {
			if err := registry.SetEnabled(ctx, id, true); err != nil {
				t.Fatalf("set enabled failed: %v", err)
			}
		}
		registry.SetEnabled(ctx, "sheet-a", false)

		ids, err := registry.ListEnabled(ctx)
		if err != nil {
			t.Fatalf("list enabled failed: %v", err)
		}
		if !reflect.DeepEqual(ids, []string{"sheet-c", "sheet-b"}) {
			t.Errorf("expected registry order, got %v", ids)
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		t.Run("Partial Update", func(t *testing.T) {
			registry, _ := setupRegistry(t)
			registry.EnsureEntry(ctx, "sheet-a")

			updates := map[string]string{
				"last_sync_at": "2025-11-12T18:42:07Z",
				"last_error":   "",
			}
			if err := registry.UpdateStatus(ctx, "sheet-a", updates); err != nil {
				t.Fatalf("update status failed: %v", err)
			}

			tenants, _ := registry.ListTenants(ctx)
			if tenants[0].LastSyncAt != "2025-11-12T18:42:07Z" {
				t.Errorf("unexpected last_sync_at: %q", tenants[0].LastSyncAt)
			}
			if tenants[0].CreatedAt == "" {
				t.Error("untouched columns must be preserved")
			}
		})

		t.Run("Unknown Tenant", func(t *testing.T) {
			registry, _ := setupRegistry(t)

			err := registry.UpdateStatus(ctx, "nope", map[string]string{"last_error": "x"})
			if !errors.Is(err, shared.ErrTenantNotFound) {
				t.Errorf("expected ErrTenantNotFound, got %v", err)
			}
		})
	})

	t.Run("Repairs Header Row", func(t *testing.T) {
		registry, ss := setupRegistry(t)
		registry.EnsureEntry(ctx, "sheet-a")

		ws, _ := ss.Worksheet(ctx, RegistrySheetTitle)
		ws.UpdateRow(ctx, 1, []string{"bogus"})

		if _, err := registry.ListTenants(ctx); err != nil {
			t.Fatalf("list tenants failed: %v", err)
		}

		row, _ := ws.RowValues(ctx, 1)
		if !reflect.DeepEqual(row, RegistryHeaders) {
			t.Errorf("header not repaired: %v", row)
		}
	})
}
