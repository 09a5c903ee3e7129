package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleHeader  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
)

// strengthColors follows the usual traffic-light meter.
var strengthColors = map[model.StrengthLabel]lipgloss.Color{
	model.StrengthStrong: lipgloss.Color("10"),
	model.StrengthGood:   lipgloss.Color("12"),
	model.StrengthFair:   lipgloss.Color("11"),
	model.StrengthWeak:   lipgloss.Color("9"),
	model.StrengthNone:   lipgloss.Color("8"),
}

const meterWidth = 24

// renderVault writes the record table and the stored-count line.
func renderVault(w io.Writer, view application.VaultView, now time.Time) {
	if len(view.Records) == 0 {
		_, _ = fmt.Fprintln(w, styleTitle.Render("No passwords yet"))
		_, _ = fmt.Fprintln(w, styleMuted.Render("Add your first entry with `vaultpanel add`."))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "USERNAME", "PASSWORD", "URL", "UPDATED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})

	for _, r := range view.Records {
		t.Row(
			string(r.Record.ID),
			r.Record.Title,
			r.Record.Username,
			r.DisplayPassword(),
			r.Record.URL,
			relativeTime(lastChange(r.Record), now),
		)
	}

	_, _ = fmt.Fprintln(w, t.Render())
	_, _ = fmt.Fprintln(w, styleMuted.Render(view.Summary()))
	if view.Stale {
		_, _ = fmt.Fprintln(w, styleWarning.Render("Some entries are out of date. Refresh to reload them."))
	}
}

// renderRecord writes one record as labelled fields.
func renderRecord(w io.Writer, view application.RecordView, now time.Time) {
	r := view.Record
	field := func(label, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", styleMuted.Render(fmt.Sprintf("%-9s", label+":")), value)
	}

	_, _ = fmt.Fprintln(w, styleTitle.Render(r.Title))
	field("ID", string(r.ID))
	field("Username", r.Username)
	field("Password", view.DisplayPassword())
	field("URL", r.URL)
	field("Notes", r.Notes)
	if !r.CreatedAt.IsZero() {
		field("Created", relativeTime(r.CreatedAt, now))
	}
	if !r.UpdatedAt.IsZero() {
		field("Updated", relativeTime(r.UpdatedAt, now))
	}
}

// renderStrength writes the label, a meter, the feedback list and, for a
// good enough password, the recommendation notice.
func renderStrength(w io.Writer, result model.StrengthResult) {
	if result.Label == model.StrengthNone {
		_, _ = fmt.Fprintln(w, styleMuted.Render("Enter a password to analyze its strength"))
		return
	}

	color := strengthColors[result.Label]
	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(string(result.Label))
	filled := result.Percent() * meterWidth / 100
	meter := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		styleMuted.Render(strings.Repeat("░", meterWidth-filled))

	_, _ = fmt.Fprintf(w, "Strength: %s  %s  %d/%d\n", label, meter, result.Score, model.MaxStrengthScore)

	if len(result.Feedback) > 0 {
		_, _ = fmt.Fprintln(w, "Suggestions:")
		for _, f := range result.Feedback {
			_, _ = fmt.Fprintf(w, "  %s %s\n", styleError.Render("•"), f)
		}
	}
	if result.MeetsRecommendations() {
		_, _ = fmt.Fprintln(w, styleSuccess.Render("Good password! This meets most security requirements."))
	}
}

// renderWarning writes the expiry warning with its two choices.
func renderWarning(w io.Writer, remaining time.Duration) {
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	_, _ = fmt.Fprintln(w, styleWarning.Render("Session timeout warning"))
	_, _ = fmt.Fprintf(w, "Your session will expire in %d %s due to inactivity.\n", minutes, unit)
	_, _ = fmt.Fprintln(w, "Type `extend` to stay signed in or `logout` to sign out now.")
}

func lastChange(r model.CredentialRecord) time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
