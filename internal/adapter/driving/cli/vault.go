package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// withVault opens a session, loads the vault and runs fn against it.
func (a *App) withVault(ctx context.Context, fn func(ctrl *application.VaultController) error) error {
	_, sess, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.ctrl.Refresh(ctx); err != nil {
		return err
	}
	return fn(sess.ctrl)
}

// draftFlags are the record fields accepted by add and edit.
type draftFlags struct {
	values   map[model.DraftField]*string
	generate bool
}

var draftFieldOrder = []model.DraftField{
	model.DraftFieldTitle,
	model.DraftFieldUsername,
	model.DraftFieldPassword,
	model.DraftFieldURL,
	model.DraftFieldNotes,
}

func bindDraftFlags(cmd *cobra.Command) *draftFlags {
	f := &draftFlags{values: make(map[model.DraftField]*string)}
	flags := cmd.Flags()
	f.values[model.DraftFieldTitle] = flags.StringP("title", "t", "", "entry title")
	f.values[model.DraftFieldUsername] = flags.StringP("username", "u", "", "login username")
	f.values[model.DraftFieldPassword] = flags.StringP("password", "p", "", "password (prompted when omitted)")
	f.values[model.DraftFieldURL] = flags.String("url", "", "website URL")
	f.values[model.DraftFieldNotes] = flags.String("notes", "", "free-form notes")
	flags.BoolVarP(&f.generate, "generate", "g", false, "generate the password with the configured generator")
	return f
}

// changed returns the fields given on the command line.
func (f *draftFlags) changed(cmd *cobra.Command) map[model.DraftField]string {
	out := make(map[model.DraftField]string)
	for field, v := range f.values {
		if cmd.Flags().Changed(string(field)) {
			out[field] = *v
		}
	}
	return out
}

// clearAnswer empties an optional field at an interactive prompt.
const clearAnswer = "-"

// fillDraft applies flag values to the controller's draft, prompting for
// the fields not given when interactive is set. Prompts show the current
// value; a blank answer keeps it and clearAnswer empties an optional field.
func (a *App) fillDraft(ctx context.Context, ctrl *application.VaultController, given map[model.DraftField]string, generate, interactive bool) error {
	current, _ := ctrl.Draft()

	for _, field := range draftFieldOrder {
		if value, ok := given[field]; ok {
			if err := ctrl.SetDraftField(field, value); err != nil {
				return err
			}
			continue
		}
		if field == model.DraftFieldPassword && generate {
			continue
		}
		if !interactive {
			continue
		}

		answer, err := a.askField(ctx, field, current)
		if err != nil {
			return err
		}
		if answer == clearAnswer && isClearable(field) {
			answer = ""
		} else if answer == "" {
			continue
		}
		if err := ctrl.SetDraftField(field, answer); err != nil {
			return err
		}
	}

	if generate {
		if _, err := ctrl.GenerateInto(model.DraftFieldPassword, a.generationConfig()); err != nil {
			return err
		}
		a.println(styleMuted.Render("Generated a new password."))
	}
	return nil
}

func (a *App) askField(ctx context.Context, field model.DraftField, current application.EditDraft) (string, error) {
	label := strings.ToUpper(string(field[:1])) + string(field[1:])
	if field == model.DraftFieldURL {
		label = "URL"
	}

	existing := fieldValue(current.Fields, field)
	switch {
	case field == model.DraftFieldPassword:
		if existing != "" {
			return a.prompt.Secret(ctx, "Password (blank keeps the current one): ")
		}
		return a.prompt.Secret(ctx, "Password: ")
	case field == model.DraftFieldTitle && existing == "":
		return a.prompt.Required(ctx, "Title: ", false)
	case existing != "" && isClearable(field):
		return a.prompt.Line(ctx, fmt.Sprintf("%s [%s] (%s clears): ", label, existing, clearAnswer))
	case existing != "":
		return a.prompt.Line(ctx, fmt.Sprintf("%s [%s]: ", label, existing))
	default:
		return a.prompt.Line(ctx, label+": ")
	}
}

func isClearable(field model.DraftField) bool {
	switch field {
	case model.DraftFieldUsername, model.DraftFieldURL, model.DraftFieldNotes:
		return true
	default:
		return false
	}
}

func fieldValue(d model.RecordDraft, field model.DraftField) string {
	switch field {
	case model.DraftFieldTitle:
		return d.Title
	case model.DraftFieldUsername:
		return d.Username
	case model.DraftFieldPassword:
		return d.Password
	case model.DraftFieldURL:
		return d.URL
	case model.DraftFieldNotes:
		return d.Notes
	default:
		return ""
	}
}

func (a *App) newListCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the stored entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withVault(cmd.Context(), func(ctrl *application.VaultController) error {
				if reveal {
					for _, r := range ctrl.View().Records {
						if _, err := ctrl.ToggleReveal(r.Record.ID); err != nil {
							return err
						}
					}
				}
				renderVault(a.out, ctrl.View(), a.opts.Clock.Now())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "show passwords in clear text")
	return cmd
}

func (a *App) newShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			view, err := sess.ctrl.Fetch(ctx, model.RecordID(args[0]))
			if err != nil {
				return err
			}
			view.Revealed = reveal
			renderRecord(a.out, view, a.opts.Clock.Now())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "show the password in clear text")
	return cmd
}

func (a *App) newAddCmd() *cobra.Command {
	var flags *draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new entry",
		Long: `Add a new entry. Fields not given as flags are prompted for; only the
title is required. With --generate the password comes from the generator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			given := flags.changed(cmd)
			_, hasTitle := given[model.DraftFieldTitle]

			return a.withVault(ctx, func(ctrl *application.VaultController) error {
				if err := ctrl.BeginCreate(); err != nil {
					return err
				}
				defer ctrl.CancelEdit()

				if err := a.fillDraft(ctx, ctrl, given, flags.generate, !hasTitle); err != nil {
					return err
				}
				return a.submit(ctx, ctrl, "Entry added.")
			})
		},
	}

	flags = bindDraftFlags(cmd)
	return cmd
}

func (a *App) newEditCmd() *cobra.Command {
	var flags *draftFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an entry",
		Long: `Edit an entry. Every field is replaced on save. Without field flags each
field is prompted for, showing its current value. A blank answer keeps the
value; "-" clears the username, URL or notes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := model.RecordID(args[0])
			given := flags.changed(cmd)
			interactive := len(given) == 0 && !flags.generate

			return a.withVault(ctx, func(ctrl *application.VaultController) error {
				if err := ctrl.BeginEdit(id); err != nil {
					return err
				}
				defer ctrl.CancelEdit()

				if err := a.fillDraft(ctx, ctrl, given, flags.generate, interactive); err != nil {
					return err
				}
				return a.submit(ctx, ctrl, "Entry updated.")
			})
		},
	}

	flags = bindDraftFlags(cmd)
	return cmd
}

// submit shows the strength of the draft password and saves the draft.
func (a *App) submit(ctx context.Context, ctrl *application.VaultController, done string) error {
	if draft, ok := ctrl.Draft(); ok && draft.Fields.Password != "" {
		renderStrength(a.out, ctrl.DraftStrength())
	}

	record, err := ctrl.SubmitDraft(ctx)
	if err != nil {
		return err
	}
	a.printf("%s %s\n", styleSuccess.Render(done), styleMuted.Render("id "+string(record.ID)))
	return nil
}

func (a *App) newRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := model.RecordID(args[0])

			return a.withVault(ctx, func(ctrl *application.VaultController) error {
				view, err := ctrl.Record(id)
				if err != nil {
					return err
				}
				if !yes {
					a.printf("%s (%s)\n", styleTitle.Render(view.Record.Title), view.Record.Username)
					ok, err := a.prompt.Confirm(ctx, "Are you sure you want to delete this item?")
					if err != nil {
						return err
					}
					if !ok {
						return errCanceled
					}
				}
				if err := ctrl.Remove(ctx, id); err != nil {
					return err
				}
				a.println(styleSuccess.Render("Entry deleted."))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func (a *App) newCopyCmd() *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a field of an entry to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.RecordID(args[0])
			return a.withVault(cmd.Context(), func(ctrl *application.VaultController) error {
				return a.copyField(ctrl, id, model.DraftField(field))
			})
		},
	}

	cmd.Flags().StringVarP(&field, "field", "f", string(model.DraftFieldPassword), "field to copy: password, username or url")
	return cmd
}

// copyField copies one field of a loaded record to the clipboard.
func (a *App) copyField(ctrl *application.VaultController, id model.RecordID, field model.DraftField) error {
	if !isCopyable(field) {
		return &model.ValidationError{Field: "field", Message: "must be one of password, username, url"}
	}
	view, err := ctrl.Record(id)
	if err != nil {
		return err
	}
	value := fieldValue(view.Record.Draft(), field)
	if value == "" {
		return &model.ValidationError{Field: string(field), Message: "entry has no " + string(field)}
	}
	if err := a.copyText(value); err != nil {
		return err
	}
	a.printf("Copied the %s of %s to the clipboard.\n", field, styleTitle.Render(view.Record.Title))
	return nil
}

func isCopyable(field model.DraftField) bool {
	switch field {
	case model.DraftFieldPassword, model.DraftFieldUsername, model.DraftFieldURL:
		return true
	default:
		return false
	}
}

func (a *App) copyText(text string) error {
	if a.opts.Clipboard == nil {
		return errors.New("clipboard unavailable")
	}
	if err := a.opts.Clipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
