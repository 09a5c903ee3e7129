// Package cli is the terminal front end of vaultpanel: one-shot cobra
// commands plus an interactive shell that runs the inactivity clock.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/clock"
	"github.com/ericfisherdev/vaultpanel/internal/config"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Services are the adapters and use cases the commands run against.
type Services struct {
	Auth   *application.AuthService
	Remote driven.VaultStore
	Tokens driven.SessionTokenStore

	// Health probes the remote service; nil when unavailable.
	Health func(ctx context.Context) error

	// Close releases the services; may be nil.
	Close func() error
}

// WireFunc builds the Services for a loaded configuration. It is called at
// most once per command, and only by commands that need it.
type WireFunc func(ctx context.Context, cfg *config.Config, nav driven.Navigator, logger *slog.Logger) (*Services, error)

// Options configure the terminal streams and collaborators of the CLI.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Clock   clock.Clock
	Version string

	// Clipboard writes text to the system clipboard.
	Clipboard func(text string) error

	// Random overrides the password generator's randomness; nil is crypto/rand.
	Random application.RandomSource

	// Args replaces the command line arguments when non-nil.
	Args []string
}

// App holds the state shared by the commands of one invocation.
type App struct {
	opts    Options
	wire    WireFunc
	out     io.Writer
	errOut  io.Writer
	prompt  *Prompter
	nav     *Navigator
	policy  *application.PasswordPolicy
	cfgFile string

	cfg      *config.Config
	logger   *slog.Logger
	services *Services
}

// shownError is a failure whose notice was already printed on the way out
// of the protected area.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// AlreadyShown reports whether the user has already seen the message for err.
func AlreadyShown(err error) bool {
	var shown *shownError
	return errors.As(err, &shown)
}

// Execute builds the command tree and runs it with ctx.
func Execute(ctx context.Context, opts Options, wire WireFunc) error {
	app, root := newRoot(opts, wire)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	ended := errors.Is(err, application.ErrSessionExpired) || errors.Is(err, driven.ErrUnauthorized)
	if ended && app.nav.Notice() != "" {
		return &shownError{err: err}
	}
	return err
}

// newRoot builds the vaultpanel command tree.
func newRoot(opts Options, wire WireFunc) (*App, *cobra.Command) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	out := &syncWriter{w: opts.Out}
	app := &App{
		opts:   opts,
		wire:   wire,
		out:    out,
		errOut: &syncWriter{w: opts.Err},
		prompt: NewPrompter(opts.In, out),
		nav:    NewNavigator(out),
		policy: application.NewPasswordPolicy(opts.Random),
	}

	root := &cobra.Command{
		Use:   "vaultpanel",
		Short: "A terminal client for your credential vault.",
		Long: `vaultpanel stores, retrieves, edits and deletes credential entries held
by a remote vault service, generates strong passwords and scores their
strength. A session ends after a period of inactivity; run "vaultpanel shell"
for an interactive session that warns before it expires.`,
		Version:           opts.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.close()
		},
	}
	if opts.Args != nil {
		root.SetArgs(opts.Args)
	}
	root.SetIn(opts.In)
	root.SetOut(out)
	root.SetErr(app.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&app.cfgFile, "config", "", "config file (default: vaultpanel.yaml in the user config dir or cwd)")
	flags.String("api-url", "", "base URL of the vault API")
	flags.String("db", "", "path of the local session database")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		app.newRegisterCmd(),
		app.newLoginCmd(),
		app.newLogoutCmd(),
		app.newStatusCmd(),
		app.newListCmd(),
		app.newShowCmd(),
		app.newAddCmd(),
		app.newEditCmd(),
		app.newRemoveCmd(),
		app.newCopyCmd(),
		app.newGenerateCmd(),
		app.newStrengthCmd(),
		app.newHealthCmd(),
		app.newConfigCmd(),
		app.newShellCmd(),
	)

	return app, root
}

// setup loads the configuration and installs the logger.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags(), a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.errOut, cfg.Log.Level)
	slog.SetDefault(a.logger)

	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// newLogger returns a slog.Logger backed by the charm log handler.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := charmlog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = charmlog.WarnLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Prefix:          "vaultpanel",
		ReportTimestamp: true,
	})
	return slog.New(handler)
}

// backend wires the services on first use.
func (a *App) backend(ctx context.Context) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	if a.wire == nil {
		return nil, fmt.Errorf("no service wiring configured")
	}

	svc, err := a.wire(ctx, a.cfg, a.nav, a.logger)
	if err != nil {
		return nil, fmt.Errorf("starting services: %w", err)
	}
	a.services = svc
	return svc, nil
}

func (a *App) close() error {
	if a.services == nil || a.services.Close == nil {
		return nil
	}
	err := a.services.Close()
	a.services = nil
	return err
}

// vaultSession is one authenticated session: its clock, the credential
// store that terminates it on authorization failure, and the controller.
type vaultSession struct {
	clock *application.SessionClock
	ctrl  *application.VaultController
}

func (s *vaultSession) Close() {
	s.ctrl.Close()
}

// openSession checks the stored credential and starts a session over it.
func (a *App) openSession(ctx context.Context) (*Services, *vaultSession, error) {
	svc, err := a.backend(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Auth.RequireSession(ctx); err != nil {
		return nil, nil, err
	}

	sessionCfg := application.SessionConfig{
		Timeout:      a.cfg.Session.Timeout,
		WarningLead:  a.cfg.Session.WarningLead,
		TickInterval: a.cfg.Session.TickInterval,
	}
	clk := application.NewSessionClock(a.opts.Clock, sessionCfg, svc.Tokens, a.nav, a.logger)
	store := application.NewCredentialStore(svc.Remote, clk, a.logger)
	ctrl := application.NewVaultController(store, a.policy, clk, a.logger)

	return svc, &vaultSession{clock: clk, ctrl: ctrl}, nil
}

// generationConfig returns the configured generator defaults.
func (a *App) generationConfig() model.GenerationConfig {
	g := a.cfg.Generator
	return model.GenerationConfig{
		Length:    g.Length,
		Uppercase: g.Uppercase,
		Lowercase: g.Lowercase,
		Digits:    g.Digits,
		Symbols:   g.Symbols,
	}
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}
