package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for minimal images

	sqliteadapter "github.com/ericfisherdev/vaultpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/vaultpanel/internal/adapter/driven/vaultapi"
	"github.com/ericfisherdev/vaultpanel/internal/adapter/driving/cli"
	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/clock"
	"github.com/ericfisherdev/vaultpanel/internal/config"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var styleFatal = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

func main() {
	if err := run(); err != nil {
		if !cli.AlreadyShown(err) {
			fmt.Fprintln(os.Stderr, styleFatal.Render(cli.Describe(err)))
		}
		os.Exit(1)
	}
}

func run() error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Run the command tree; services are wired on first use.
	err := cli.Execute(ctx, cli.Options{
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		Clock:     clock.Real(),
		Version:   version,
		Clipboard: clipboard.WriteAll,
	}, wire)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// wire opens the local session database and connects the remote client.
func wire(ctx context.Context, cfg *config.Config, nav driven.Navigator, logger *slog.Logger) (*cli.Services, error) {
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}

	// 1. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", db.Path())

	// 2. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	// 3. Wire adapters.
	sessions, err := sqliteadapter.NewSessionRepo(db, key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	api, err := vaultapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, sessions, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("vault client created", "base_url", api.BaseURL(), "encrypted_session", key != nil)

	// 4. Create the account service; the stored session expires after the
	// same inactivity timeout as a live one.
	auth := application.NewAuthService(api, sessions, nav, logger).
		WithInactivityTimeout(sessions, clock.Real(), cfg.Session.Timeout)

	return &cli.Services{
		Auth:   auth,
		Remote: api,
		Tokens: sessions,
		Health: api.Health,
		Close: func() error {
			if err := db.Close(); err != nil {
				return fmt.Errorf("closing database: %w", err)
			}
			return nil
		},
	}, nil
}
