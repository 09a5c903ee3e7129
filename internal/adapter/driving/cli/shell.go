package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

const shellHelp = `Commands:
  list                 show all entries
  refresh              reload the entries from the service
  show <id>            show one entry
  reveal <id>          show or hide the password of an entry
  add                  add an entry
  edit <id>            edit an entry
  rm <id>              delete an entry
  copy <id> [field]    copy password, username or url to the clipboard
  generate             print a generated password
  strength             score a password
  extend               keep the session alive
  logout               end the session
  exit                 leave the shell; the session stays stored`

// shell is one interactive session.
type shell struct {
	app  *App
	svc  *Services
	sess *vaultSession
}

func (a *App) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Every command typed counts as activity; the
session warns before it expires from inactivity and ends on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, sess, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			sh := &shell{app: a, svc: svc, sess: sess}
			return sh.run(cmd.Context())
		},
	}
}

func (sh *shell) run(ctx context.Context) error {
	a := sh.app
	clk := sh.sess.clock

	// Reads are abandoned as soon as the session ends.
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		clk.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		select {
		case <-clk.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	unsub := clk.Subscribe(func(ev application.SessionEvent) {
		if ev.State == model.SessionWarningShown {
			renderWarning(a.out, ev.Remaining)
		}
	})
	defer unsub()

	// Every line typed counts, including answers to a command's own prompts.
	restore := a.prompt.OnLine(func() { sh.recordActivity(ctx) })
	defer restore()

	if err := sh.sess.ctrl.Refresh(ctx); err != nil {
		a.println(styleError.Render(Describe(err)))
	} else {
		renderVault(a.out, sh.sess.ctrl.View(), a.opts.Clock.Now())
	}
	a.println(styleMuted.Render("Type `help` for commands."))

	for {
		line, err := a.prompt.Line(ctx, "vault> ")
		switch {
		case clk.Expired():
			return nil
		case errors.Is(err, ErrInputClosed):
			a.println()
			return nil
		case err != nil:
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		quit, err := sh.dispatch(ctx, fields[0], fields[1:])
		if clk.Expired() {
			return nil
		}
		if err != nil {
			a.println(styleError.Render(Describe(err)))
		}
		if quit {
			return nil
		}
	}
}

// recordActivity resets the live clock and the persisted last activity.
func (sh *shell) recordActivity(ctx context.Context) {
	clk := sh.sess.clock
	if clk.Expired() {
		return
	}
	clk.RecordActivity(model.ActivityKeyboard)
	if err := sh.svc.Auth.Touch(ctx); err != nil {
		sh.app.logger.Warn("failed to record activity", "error", err)
	}
}

// dispatch runs one shell command and reports whether the shell should end.
func (sh *shell) dispatch(ctx context.Context, name string, args []string) (bool, error) {
	a := sh.app
	ctrl := sh.sess.ctrl
	now := a.opts.Clock.Now()

	needID := func() (model.RecordID, error) {
		if len(args) == 0 {
			return "", &model.ValidationError{Field: "id", Message: fmt.Sprintf("usage: %s <id>", name)}
		}
		return model.RecordID(args[0]), nil
	}

	switch name {
	case "help", "?":
		a.println(shellHelp)

	case "list", "ls":
		renderVault(a.out, ctrl.View(), now)

	case "refresh":
		if err := ctrl.Refresh(ctx); err != nil {
			return false, err
		}
		renderVault(a.out, ctrl.View(), now)

	case "show":
		id, err := needID()
		if err != nil {
			return false, err
		}
		view, err := ctrl.Fetch(ctx, id)
		if err != nil {
			return false, err
		}
		renderRecord(a.out, view, now)

	case "reveal":
		id, err := needID()
		if err != nil {
			return false, err
		}
		if _, err := ctrl.ToggleReveal(id); err != nil {
			return false, err
		}
		renderVault(a.out, ctrl.View(), now)

	case "add":
		if err := ctrl.BeginCreate(); err != nil {
			return false, err
		}
		defer ctrl.CancelEdit()
		if err := a.fillDraft(ctx, ctrl, nil, false, true); err != nil {
			return false, err
		}
		return false, a.submit(ctx, ctrl, "Entry added.")

	case "edit":
		id, err := needID()
		if err != nil {
			return false, err
		}
		if err := ctrl.BeginEdit(id); err != nil {
			return false, err
		}
		defer ctrl.CancelEdit()
		if err := a.fillDraft(ctx, ctrl, nil, false, true); err != nil {
			return false, err
		}
		return false, a.submit(ctx, ctrl, "Entry updated.")

	case "rm", "delete":
		id, err := needID()
		if err != nil {
			return false, err
		}
		if _, err := ctrl.Record(id); err != nil {
			return false, err
		}
		ok, err := a.prompt.Confirm(ctx, "Are you sure you want to delete this item?")
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errCanceled
		}
		if err := ctrl.Remove(ctx, id); err != nil {
			return false, err
		}
		a.println(styleSuccess.Render("Entry deleted."))

	case "copy":
		id, err := needID()
		if err != nil {
			return false, err
		}
		field := model.DraftFieldPassword
		if len(args) > 1 {
			field = model.DraftField(args[1])
		}
		if err := a.copyField(ctrl, id, field); err != nil {
			return false, err
		}

	case "generate":
		password, err := a.policy.Generate(a.generationConfig())
		if err != nil {
			return false, err
		}
		a.println(password)

	case "strength":
		password, err := a.prompt.Secret(ctx, "Password: ")
		if err != nil {
			return false, err
		}
		renderStrength(a.out, a.policy.Score(password))

	case "extend":
		sh.sess.clock.Extend()
		a.println(styleSuccess.Render("Session extended."))

	case "logout":
		sh.sess.clock.Logout()
		return true, nil

	case "exit", "quit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q; type `help` for commands", name)
	}

	return false, nil
}
