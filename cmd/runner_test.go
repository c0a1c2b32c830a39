package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/desertthunder/playlog/internal/sheets"
	tu "github.com/desertthunder/playlog/internal/testing"
	"github.com/desertthunder/playlog/internal/vault"
)

func newTestRunner(t *testing.T, provider services.Provider) (*Runner, *bytes.Buffer, *sheets.MemoryOpener) {
	t.Helper()

	v, err := vault.New("runner-secret")
	if err != nil {
		t.Fatalf("vault: %v", err)
	}

	config := shared.DefaultConfig()
	config.Sheets.RegistrySheetID = "registry-sheet"

	output := &bytes.Buffer{}
	opener := sheets.NewMemoryOpener()
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: provider,
		Opener:   opener,
		Vault:    v,
		Output:   output,
	})
	return runner, output, opener
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			provider := &tu.MockProvider{}
			opener := sheets.NewMemoryOpener()

			runner := NewRunner(RunnerOpts{
				Config:   config,
				Logger:   logger,
				Output:   output,
				Provider: provider,
				Opener:   opener,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.provider != provider {
				t.Error("expected provider to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limited})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlainHeader", func(t *testing.T) {
		t.Run("writes ruled title", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainHeader("Sync Complete"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Sync Complete") {
				t.Errorf("expected title in output, got %s", output.String())
			}
		})

		t.Run("propagates write failure", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limited})

			if err := runner.writePlainHeader("Sync Complete"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 5 {
			t.Errorf("expected 5 top-level commands, got %d", len(commands))
		}
		names := make(map[string]bool)
		for _, c := range commands {
			names[c.Name] = true
		}
		for _, want := range []string{"setup", "auth", "tenant", "sync", "enrich"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})

	t.Run("Dependency Guards", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		if _, err := runner.requireProvider(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if _, err := runner.requireVault(); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if _, err := runner.requireOpener(); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if _, err := runner.openRegistry(ctx); err == nil {
			t.Error("expected error without an opener")
		}
	})

	t.Run("openRegistry", func(t *testing.T) {
		t.Run("requires configured sheet id", func(t *testing.T) {
			runner, _, _ := newTestRunner(t, &tu.MockProvider{})
			runner.config.Sheets.RegistrySheetID = ""

			if _, err := runner.openRegistry(ctx); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("opens configured registry", func(t *testing.T) {
			runner, _, _ := newTestRunner(t, &tu.MockProvider{})
			registry, err := runner.openRegistry(ctx)
			if err != nil {
				t.Fatalf("expected registry, got %v", err)
			}
			if registry == nil {
				t.Fatal("expected non-nil registry")
			}
		})
	})

	t.Run("newEngine", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &tu.MockProvider{})
		engine, err := runner.newEngine(ctx, false)
		if err != nil {
			t.Fatalf("expected engine, got %v", err)
		}
		if engine == nil {
			t.Fatal("expected non-nil engine")
		}

		t.Run("fails without provider", func(t *testing.T) {
			runner, _, _ := newTestRunner(t, nil)
			runner.provider = nil
			if _, err := runner.newEngine(ctx, false); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("auth url prints consent link", func(t *testing.T) {
		provider := &tu.MockProvider{}
		runner, output, _ := newTestRunner(t, provider)

		app := authCommand(runner)
		if err := app.Run(ctx, []string{"auth", "url", "--state", "abc"}); err != nil {
			t.Fatalf("auth url failed: %v", err)
		}
		if !strings.Contains(output.String(), "state=abc") {
			t.Errorf("expected consent URL with state, got %s", output.String())
		}
	})

	t.Run("tenant lifecycle", func(t *testing.T) {
		runner, output, opener := newTestRunner(t, &tu.MockProvider{})

		if err := tenantCommand(runner).Run(ctx, []string{"tenant", "add", "--timezone", "America/New_York", "sheet-1"}); err != nil {
			t.Fatalf("tenant add failed: %v", err)
		}
		if !strings.Contains(output.String(), "sheet-1 provisioned") {
			t.Errorf("unexpected output: %s", output.String())
		}

		ss, _ := opener.Open(ctx, "sheet-1")
		store := repositories.NewTenantStore(ss)
		state, err := store.ReadState(ctx)
		if err != nil {
			t.Fatalf("read state: %v", err)
		}
		if state.Timezone != "America/New_York" {
			t.Errorf("expected timezone seeded, got %q", state.Timezone)
		}

		if err := tenantCommand(runner).Run(ctx, []string{"tenant", "enable", "sheet-1"}); err != nil {
			t.Fatalf("tenant enable failed: %v", err)
		}
		state, _ = store.ReadState(ctx)
		if !state.Enabled {
			t.Error("expected enabled flag mirrored into state")
		}

		registry, _ := runner.openRegistry(ctx)
		enabled, err := registry.ListEnabled(ctx)
		if err != nil {
			t.Fatalf("list enabled: %v", err)
		}
		if len(enabled) != 1 || enabled[0] != "sheet-1" {
			t.Errorf("expected sheet-1 enabled, got %v", enabled)
		}

		output.Reset()
		if err := tenantCommand(runner).Run(ctx, []string{"tenant", "list", "--json"}); err != nil {
			t.Fatalf("tenant list failed: %v", err)
		}
		if !strings.Contains(output.String(), `"sheet_id": "sheet-1"`) {
			t.Errorf("expected JSON listing, got %s", output.String())
		}
	})

	t.Run("auth exchange stores encrypted refresh token", func(t *testing.T) {
		provider := &tu.MockProvider{
			ExchangeCodeFunc: func(ctx context.Context, code string) (*models.Tokens, error) {
				if code != "the-code" {
					t.Errorf("unexpected code %q", code)
				}
				return &models.Tokens{AccessToken: "at", RefreshToken: "rt-fresh"}, nil
			},
			UserProfileFunc: func(ctx context.Context, accessToken string) (*services.UserProfile, error) {
				return &services.UserProfile{ID: "acct-9"}, nil
			},
		}
		runner, output, opener := newTestRunner(t, provider)

		if err := authCommand(runner).Run(ctx, []string{"auth", "exchange", "--sheet", "sheet-1", "the-code"}); err != nil {
			t.Fatalf("auth exchange failed: %v", err)
		}
		if !strings.Contains(output.String(), "Authorized acct-9") {
			t.Errorf("unexpected output: %s", output.String())
		}

		ss, _ := opener.Open(ctx, "sheet-1")
		store := repositories.NewTenantStore(ss)
		state, _ := store.ReadState(ctx)
		if state.SpotifyUserID != "acct-9" {
			t.Errorf("expected account id stored, got %q", state.SpotifyUserID)
		}
		token, err := runner.vault.Decrypt(state.RefreshTokenEnc)
		if err != nil || token != "rt-fresh" {
			t.Errorf("expected encrypted refresh token round trip, got %q / %v", token, err)
		}
	})

	t.Run("sync run reports batch outcome", func(t *testing.T) {
		provider := &tu.MockProvider{
			RecentlyPlayedFunc: func(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error) {
				return []models.PlayRecord{{
					PlayedAt:    "2025-11-12T10:00:00Z",
					TrackID:     "t1",
					TrackName:   "One",
					ArtistNames: "A",
					URL:         "https://open.spotify.com/track/t1",
				}}, nil
			},
			UserProfileFunc: func(ctx context.Context, accessToken string) (*services.UserProfile, error) {
				return &services.UserProfile{ID: "acct-1"}, nil
			},
		}
		runner, output, opener := newTestRunner(t, provider)

		ss, _ := opener.Open(ctx, "sheet-1")
		store := repositories.NewTenantStore(ss)
		if err := store.EnsureSchema(ctx, ""); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
		enc, _ := runner.vault.Encrypt("rt-1")
		if err := store.WriteState(ctx, map[string]string{models.StateKeyRefreshTokenEnc: enc}); err != nil {
			t.Fatalf("write state: %v", err)
		}
		registry, _ := runner.openRegistry(ctx)
		if err := registry.SetEnabled(ctx, "sheet-1", true); err != nil {
			t.Fatalf("enable tenant: %v", err)
		}

		if err := syncCommand(runner).Run(ctx, []string{"sync", "run"}); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}
		if !strings.Contains(output.String(), "1 synced, 0 failed") {
			t.Errorf("unexpected summary: %s", output.String())
		}
		if !strings.Contains(output.String(), "1 appended") {
			t.Errorf("expected per-tenant line, got %s", output.String())
		}
	})

	t.Run("sync tenant dry run leaves sheet untouched", func(t *testing.T) {
		provider := &tu.MockProvider{
			RecentlyPlayedFunc: func(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error) {
				return []models.PlayRecord{{
					PlayedAt:    "2025-11-12T10:00:00Z",
					TrackID:     "t1",
					TrackName:   "One",
					ArtistNames: "A",
					URL:         "u",
				}}, nil
			},
		}
		runner, output, opener := newTestRunner(t, provider)

		ss, _ := opener.Open(ctx, "sheet-1")
		store := repositories.NewTenantStore(ss)
		if err := store.EnsureSchema(ctx, ""); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
		enc, _ := runner.vault.Encrypt("rt-1")
		updates := map[string]string{
			models.StateKeyRefreshTokenEnc: enc,
			models.StateKeySpotifyUserID:   "acct-1",
		}
		if err := store.WriteState(ctx, updates); err != nil {
			t.Fatalf("write state: %v", err)
		}

		if err := syncCommand(runner).Run(ctx, []string{"sync", "tenant", "--dry-run", "sheet-1"}); err != nil {
			t.Fatalf("sync tenant failed: %v", err)
		}
		if !strings.Contains(output.String(), "1 appended") {
			t.Errorf("expected projected append, got %s", output.String())
		}

		state, _ := store.ReadState(ctx)
		if state.LastSyncedAfter != 0 {
			t.Errorf("dry run advanced cursor to %d", state.LastSyncedAfter)
		}
	})

	t.Run("setup writes config file", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &tu.MockProvider{})

		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		defer tu.MustChdir(t, wd)

		if err := setupCommand(runner).Run(ctx, []string{"setup"}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, "config.toml")
		if !strings.Contains(tu.MustReadFile(t, "config.toml"), "[credentials.spotify]") {
			t.Error("starter config should scaffold the spotify credentials table")
		}
		if !strings.Contains(output.String(), "Config written") {
			t.Errorf("unexpected output: %s", output.String())
		}

		output.Reset()
		if err := setupCommand(runner).Run(ctx, []string{"setup"}); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
		if !strings.Contains(output.String(), "already exists") {
			t.Errorf("expected idempotent setup, got %s", output.String())
		}
	})
}
