// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles configuration scaffolding.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a starter configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the Spotify consent handshake
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "url",
				Usage: "Print the consent URL to open in a browser",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "state",
						Usage: "CSRF state token (random when omitted)",
					},
				},
				Action: r.AuthURL,
			},
			{
				Name:  "login",
				Usage: "Run the consent flow with a localhost callback server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "sheet",
						Usage:    "Tenant spreadsheet ID",
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "exchange",
				Usage: "Exchange an authorization code and store the refresh token in a tenant sheet",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "code",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "sheet",
						Usage:    "Tenant spreadsheet ID",
						Required: true,
					},
				},
				Action: r.AuthExchange,
			},
		},
	}
}

// tenantCommand handles registry management operations
func tenantCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tenant",
		Usage: "Manage tenant sheets in the registry",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Provision a tenant sheet and register it",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "sheet",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "timezone",
						Usage: "IANA timezone for log date formatting",
						Value: "UTC",
					},
				},
				Action: r.TenantAdd,
			},
			{
				Name:  "enable",
				Usage: "Enable a tenant for batch syncs",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "sheet",
					},
				},
				Action: r.TenantEnable,
			},
			{
				Name:  "disable",
				Usage: "Disable a tenant without removing it",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "sheet",
					},
				},
				Action: r.TenantDisable,
			},
			{
				Name:  "list",
				Usage: "List registered tenants and their status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.TenantList,
			},
		},
	}
}

// syncCommand handles history sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync listening history into tenant sheets",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a sync pass for every enabled tenant",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Compute the pass without writing to any sheet",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "tenant",
				Usage: "Run a sync pass for a single tenant sheet",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "sheet",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Compute the pass without writing to any sheet",
					},
				},
				Action: r.SyncTenant,
			},
		},
	}
}

// enrichCommand handles metadata cache backfills
func enrichCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Backfill raw track and artist metadata caches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "Tenant spreadsheet ID (all enabled tenants when omitted)",
			},
		},
		Action: r.Enrich,
	}
}
