package cli

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

func (a *App) newRegisterCmd() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the vault service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.backend(ctx)
			if err != nil {
				return err
			}

			if username == "" {
				if username, err = a.prompt.Required(ctx, "Username: ", false); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = a.prompt.Line(ctx, "Email (optional): "); err != nil {
					return err
				}
			}
			password, err := a.prompt.Required(ctx, "Password: ", true)
			if err != nil {
				return err
			}

			reg := driven.Registration{Username: username, Email: email, Password: password}
			if err := svc.Auth.Register(ctx, reg); err != nil {
				return err
			}
			a.println(styleSuccess.Render("Account created."), "Run `vaultpanel login` to sign in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (a *App) newLoginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.backend(ctx)
			if err != nil {
				return err
			}

			if username == "" {
				if username, err = a.prompt.Required(ctx, "Username: ", false); err != nil {
					return err
				}
			}
			password, err := a.prompt.Required(ctx, "Password: ", true)
			if err != nil {
				return err
			}

			return svc.Auth.Login(ctx, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	return cmd
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.backend(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Auth.Logout(cmd.Context())
		},
	}
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without extending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.backend(cmd.Context())
			if err != nil {
				return err
			}
			status, err := svc.Auth.Status(cmd.Context())
			if err != nil {
				return err
			}

			if !status.LoggedIn {
				a.println("Not logged in.")
				return nil
			}

			who := status.Username
			if who == "" {
				who = "unknown user"
			}
			a.printf("Logged in as %s.\n", styleTitle.Render(who))

			now := a.opts.Clock.Now()
			if !status.LastActivity.IsZero() {
				a.printf("Last activity %s.\n", humanize.RelTime(status.LastActivity, now, "ago", "from now"))
				if status.Remaining <= 0 {
					a.println(styleWarning.Render("The session has expired from inactivity."))
				} else {
					a.printf("The session expires %s unless used.\n",
						humanize.RelTime(now.Add(status.Remaining.Round(time.Second)), now, "ago", "from now"))
				}
			}
			return nil
		},
	}
}
