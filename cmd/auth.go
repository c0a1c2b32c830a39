package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/server"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the Spotify consent URL for the user to open in a browser.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	provider, err := r.requireProvider()
	if err != nil {
		return err
	}

	state := cmd.String("state")
	if state == "" {
		state = shared.GenerateID()
	}

	r.writePlain("Open this URL in a browser and approve access:\n\n")
	r.writePlain("%s\n\n", provider.AuthURL(state))
	r.writePlain("Then run: playlog auth exchange --sheet <sheet-id> <code>\n")
	return nil
}

// AuthExchange trades an authorization code for tokens and stores the
// encrypted refresh token in the tenant sheet's state section.
func (r *Runner) AuthExchange(ctx context.Context, cmd *cli.Command) error {
	code := cmd.StringArg("code")
	sheetID := cmd.String("sheet")

	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	provider, err := r.requireProvider()
	if err != nil {
		return err
	}

	r.logger.Info("exchanging authorization code", "sheet", sheetID)
	tokens, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	if tokens.RefreshToken == "" {
		return fmt.Errorf("%w: provider returned no refresh token", shared.ErrAuthFailed)
	}

	return r.storeAuthorization(ctx, sheetID, tokens)
}

// AuthLogin runs the full consent flow in one step: it starts a localhost
// callback server, prints the consent URL, and stores the resulting refresh
// token once the browser redirect lands.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	sheetID := cmd.String("sheet")

	provider, err := r.requireProvider()
	if err != nil {
		return err
	}
	if _, err := r.requireVault(); err != nil {
		return err
	}
	if _, err := r.requireOpener(); err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q is not a valid URL", shared.ErrInvalidConfig, r.config.Credentials.Spotify.RedirectURI)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(provider, state)

	r.writePlain("Open this URL in a browser and approve access:\n\n")
	r.writePlain("%s\n\n", provider.AuthURL(state))
	r.writePlain("Waiting for the redirect on %s...\n", redirect.Host)

	tokens, err := server.WaitForCallback(ctx, redirect.Host, handler)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if tokens.RefreshToken == "" {
		return fmt.Errorf("%w: provider returned no refresh token", shared.ErrAuthFailed)
	}

	return r.storeAuthorization(ctx, sheetID, tokens)
}

// storeAuthorization encrypts the refresh token into the tenant sheet's state
// section and registers the sheet.
func (r *Runner) storeAuthorization(ctx context.Context, sheetID string, tokens *models.Tokens) error {
	provider, err := r.requireProvider()
	if err != nil {
		return err
	}
	v, err := r.requireVault()
	if err != nil {
		return err
	}
	opener, err := r.requireOpener()
	if err != nil {
		return err
	}

	profile, err := provider.UserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	enc, err := v.Encrypt(tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	ss, err := opener.Open(ctx, sheetID)
	if err != nil {
		return fmt.Errorf("open sheet %s: %w", sheetID, err)
	}
	store := repositories.NewTenantStore(ss)
	if err := store.EnsureSchema(ctx, ""); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	updates := map[string]string{
		models.StateKeyRefreshTokenEnc: enc,
		models.StateKeySpotifyUserID:   profile.ID,
	}
	if err := store.WriteState(ctx, updates); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	if registry, err := r.openRegistry(ctx); err == nil {
		if err := registry.EnsureEntry(ctx, sheetID); err != nil {
			r.logger.Warn("failed to register tenant", "sheet", sheetID, "error", err)
		}
	} else {
		r.logger.Warn("registry unavailable, tenant not registered", "error", err)
	}

	r.logger.Info("authorization stored", "sheet", sheetID, "account", profile.ID)
	r.writePlain("✓ Authorized %s for sheet %s\n", profile.ID, sheetID)
	r.writePlain("Enable syncs with: playlog tenant enable %s\n", sheetID)
	return nil
}
