package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter configuration file when none exists yet.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
		return r.writePlain("Config already exists at %s\n", configPath)
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Fill in credentials.spotify with your app's client id and secret\n")
	r.writePlain("2. Point sheets.service_account_file at a Google service account key\n")
	r.writePlain("3. Set sheets.registry_sheet_id and vault.secret\n")
	return nil
}
