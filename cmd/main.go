package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/desertthunder/playlog/internal/sheets"
	"github.com/desertthunder/playlog/internal/vault"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var provider services.Provider
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify, nil); err == nil {
			provider = svc
		} else {
			logger.Warn("spotify service unavailable", "error", err)
		}
	}

	var credVault *vault.Vault
	if config.Vault.Secret != "" {
		if v, err := vault.New(config.Vault.Secret); err == nil {
			credVault = v
		} else {
			logger.Warn("credential vault unavailable", "error", err)
		}
	}

	var opener sheets.Opener
	if config.Sheets.ServiceAccountFile != "" {
		if client, err := sheets.NewServiceAccountClient(ctx, config.Sheets.ServiceAccountFile, config.Worker.RequestTimeout()); err == nil {
			opener = client
		} else {
			logger.Warn("sheets client unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: provider,
		Opener:   opener,
		Vault:    credVault,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:    "playlog",
		Usage:   "Sync Spotify listening history into per-user Google Sheets",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
