package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/playlog/internal/shared"
)

func TestMemorySpreadsheet(t *testing.T) {
	ctx := context.Background()

	t.Run("Worksheet Lifecycle", func(t *testing.T) {
		ss := NewMemorySpreadsheet("mem-1")

		_, err := ss.Worksheet(ctx, "log")
		if !errors.Is(err, shared.ErrWorksheetNotFound) {
			t.Errorf("expected ErrWorksheetNotFound, got %v", err)
		}

		ws, err := ss.AddWorksheet(ctx, "log", 100, 5)
		if err != nil {
			t.Fatalf("failed to add worksheet: %v", err)
		}
		if ws.Title() != "log" {
			t.Errorf("expected title log, got %s", ws.Title())
		}

		if _, err := ss.AddWorksheet(ctx, "log", 100, 5); err == nil {
			t.Error("expected error adding duplicate worksheet")
		}

		if err := ss.SetHidden(ctx, "log", true); err != nil {
			t.Fatalf("failed to hide worksheet: %v", err)
		}
		if !ss.Hidden("log") {
			t.Error("expected worksheet to be hidden")
		}
	})

	t.Run("Rows And Columns", func(t *testing.T) {
		ss := NewMemorySpreadsheet("mem-1")
		ws, _ := ss.AddWorksheet(ctx, "__dedupe", 1000, 1)

		if err := ws.UpdateRow(ctx, 1, []string{"dedupe_key"}); err != nil {
			t.Fatalf("failed to write header: %v", err)
		}
		if err := ws.AppendRows(ctx, [][]string{{"k1"}, {"k2"}}); err != nil {
			t.Fatalf("failed to append: %v", err)
		}

		col, err := ws.ColValues(ctx, 1)
		if err != nil {
			t.Fatalf("failed to read column: %v", err)
		}
		if len(col) != 3 || col[0] != "dedupe_key" || col[2] != "k2" {
			t.Errorf("unexpected column: %v", col)
		}

		row, _ := ws.RowValues(ctx, 2)
		if len(row) != 1 || row[0] != "k1" {
			t.Errorf("unexpected row: %v", row)
		}

		rows, _ := ws.Rows(ctx)
		if len(rows) != 3 {
			t.Errorf("expected 3 rows, got %d", len(rows))
		}
	})

	t.Run("UpdateRows Pads Grid", func(t *testing.T) {
		ss := NewMemorySpreadsheet("mem-1")
		ws, _ := ss.AddWorksheet(ctx, "__app_state", 50, 2)

		if err := ws.UpdateRows(ctx, 2, [][]string{{"enabled", "false"}, {"timezone", "UTC"}}); err != nil {
			t.Fatalf("failed to update rows: %v", err)
		}

		rows, _ := ws.Rows(ctx)
		if len(rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(rows))
		}
		if rows[2][0] != "timezone" {
			t.Errorf("unexpected grid contents: %v", rows)
		}
	})

	t.Run("Opener", func(t *testing.T) {
		opener := NewMemoryOpener()

		first, err := opener.Open(ctx, "sheet-a")
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}

		second, err := opener.Open(ctx, "sheet-a")
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}

		if first != second {
			t.Error("expected the same spreadsheet instance on reopen")
		}
	})
}
