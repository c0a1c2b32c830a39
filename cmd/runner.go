package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/desertthunder/playlog/internal/sheets"
	"github.com/desertthunder/playlog/internal/tasks"
	"github.com/desertthunder/playlog/internal/vault"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	provider services.Provider
	opener   sheets.Opener
	vault    *vault.Vault
	logger   *log.Logger
	output   io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Provider services.Provider
	Opener   sheets.Opener
	Vault    *vault.Vault
	Logger   *log.Logger
	Output   io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		provider: opts.Provider,
		opener:   opts.Opener,
		vault:    opts.Vault,
		logger:   opts.Logger,
		output:   opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tenantCommand, syncCommand, enrichCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireProvider returns the configured streaming provider or a config error.
func (r *Runner) requireProvider() (services.Provider, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("%w: spotify credentials not configured", shared.ErrMissingCredentials)
	}
	return r.provider, nil
}

// requireVault returns the credential vault or a config error.
func (r *Runner) requireVault() (*vault.Vault, error) {
	if r.vault == nil {
		return nil, fmt.Errorf("%w: vault secret not configured", shared.ErrMissingConfig)
	}
	return r.vault, nil
}

// requireOpener returns the spreadsheet opener or a config error.
func (r *Runner) requireOpener() (sheets.Opener, error) {
	if r.opener == nil {
		return nil, fmt.Errorf("%w: sheets service account not configured", shared.ErrMissingConfig)
	}
	return r.opener, nil
}

// openRegistry opens the registry spreadsheet named in the configuration.
func (r *Runner) openRegistry(ctx context.Context) (*repositories.Registry, error) {
	opener, err := r.requireOpener()
	if err != nil {
		return nil, err
	}
	if r.config.Sheets.RegistrySheetID == "" {
		return nil, fmt.Errorf("%w: registry sheet id not configured", shared.ErrMissingConfig)
	}
	ss, err := opener.Open(ctx, r.config.Sheets.RegistrySheetID)
	if err != nil {
		return nil, fmt.Errorf("open registry sheet: %w", err)
	}
	return repositories.NewRegistry(ss), nil
}

// newEngine assembles a SyncEngine from the runner's dependencies.
func (r *Runner) newEngine(ctx context.Context, dryRun bool) (*tasks.SyncEngine, error) {
	provider, err := r.requireProvider()
	if err != nil {
		return nil, err
	}
	opener, err := r.requireOpener()
	if err != nil {
		return nil, err
	}
	v, err := r.requireVault()
	if err != nil {
		return nil, err
	}
	registry, err := r.openRegistry(ctx)
	if err != nil {
		return nil, err
	}

	return tasks.NewSyncEngine(tasks.EngineConfig{
		Provider: provider,
		Opener:   opener,
		Vault:    v,
		Registry: registry,
		Worker:   r.config.Worker,
		Logger:   r.logger,
		DryRun:   dryRun,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) error {
	if err := r.writePlain("═══════════════════════════════════════\n"); err != nil {
		return err
	}
	if err := r.writePlain("%v\n", title); err != nil {
		return err
	}
	return r.writePlain("═══════════════════════════════════════\n")
}
