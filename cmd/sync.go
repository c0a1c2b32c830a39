package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlog/internal/shared"
	"github.com/desertthunder/playlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun runs a sync pass for every enabled registry tenant.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run")

	engine, err := r.newEngine(ctx, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		r.writePlain("Dry run: no sheet will be written\n\n")
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	report, err := engine.SyncAll(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	if err := r.writePlainHeader("Sync Complete"); err != nil {
		return err
	}
	r.writePlain("Tenants: %d synced, %d failed\n", report.Succeeded, report.Failed)
	for _, res := range report.Results {
		if res.Err != nil {
			r.writePlain("  ✗ %s: %v\n", res.SheetID, res.Err)
			continue
		}
		r.writePlain("  ✓ %s: %d fetched, %d appended, %d skipped\n",
			res.SheetID, res.Result.Fetched, res.Result.Appended, res.Result.Skipped)
	}

	if report.Failed > 0 {
		r.logger.Warn("some tenants failed", "failed", report.Failed)
	}
	return nil
}

// SyncTenant runs a sync pass for one tenant sheet.
func (r *Runner) SyncTenant(ctx context.Context, cmd *cli.Command) error {
	sheetID := cmd.StringArg("sheet")
	if sheetID == "" {
		return fmt.Errorf("%w: sheet id", shared.ErrMissingArgument)
	}

	engine, err := r.newEngine(ctx, cmd.Bool("dry-run"))
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := engine.SyncTenant(ctx, progressCh, sheetID)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n✓ %s: %d fetched, %d appended, %d skipped (cursor %d)\n",
		result.SheetID, result.Fetched, result.Appended, result.Skipped, result.Cursor)
	return nil
}

// Enrich backfills metadata caches for one tenant or every enabled tenant.
func (r *Runner) Enrich(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.newEngine(ctx, false)
	if err != nil {
		return err
	}

	sheetIDs := []string{cmd.String("sheet")}
	if sheetIDs[0] == "" {
		registry, err := r.openRegistry(ctx)
		if err != nil {
			return err
		}
		sheetIDs, err = registry.ListEnabled(ctx)
		if err != nil {
			return fmt.Errorf("list enabled tenants: %w", err)
		}
	}

	for _, sheetID := range sheetIDs {
		result, err := engine.EnrichTenant(ctx, nil, sheetID)
		if err != nil {
			r.logger.Error("enrich failed", "sheet", sheetID, "error", err)
			r.writePlain("✗ %s: %v\n", sheetID, err)
			continue
		}
		r.writePlain("✓ %s: %d tracks cached, %d artists cached\n",
			result.SheetID, result.TracksCached, result.ArtistsCached)
	}
	return nil
}
