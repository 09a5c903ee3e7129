package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

func (a *App) newGenerateCmd() *cobra.Command {
	var (
		length                                int
		noUpper, noLower, noDigits, noSymbols bool
		copyOut, score                        bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random password",
		Long: `Generate a random password. Defaults come from the generator section of
the configuration; flags override them for this run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.generationConfig()
			if cmd.Flags().Changed("length") {
				cfg.Length = length
			}
			cfg.Uppercase = cfg.Uppercase && !noUpper
			cfg.Lowercase = cfg.Lowercase && !noLower
			cfg.Digits = cfg.Digits && !noDigits
			cfg.Symbols = cfg.Symbols && !noSymbols

			password, err := a.policy.Generate(cfg)
			if err != nil {
				return err
			}

			if copyOut {
				if err := a.copyText(password); err != nil {
					return err
				}
				a.println("Copied a new password to the clipboard.")
			} else {
				a.println(password)
			}
			if score {
				renderStrength(a.out, a.policy.Score(password))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&length, "length", "l", model.DefaultPasswordLength, "password length")
	flags.BoolVar(&noUpper, "no-upper", false, "leave out uppercase letters")
	flags.BoolVar(&noLower, "no-lower", false, "leave out lowercase letters")
	flags.BoolVar(&noDigits, "no-digits", false, "leave out digits")
	flags.BoolVar(&noSymbols, "no-symbols", false, "leave out symbols")
	flags.BoolVarP(&copyOut, "copy", "c", false, "copy to the clipboard instead of printing")
	flags.BoolVarP(&score, "strength", "s", false, "also show the strength of the password")
	return cmd
}

func (a *App) newStrengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strength [password]",
		Short: "Score the strength of a password",
		Long: `Score the strength of a password. Without an argument the password is
read from the prompt without echo, which keeps it out of the shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				if password, err = a.prompt.Secret(cmd.Context(), "Password: "); err != nil {
					return err
				}
			}
			renderStrength(a.out, a.policy.Score(password))
			return nil
		},
	}
}

func (a *App) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the vault service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.backend(cmd.Context())
			if err != nil {
				return err
			}
			if svc.Health == nil {
				return errors.New("health check unavailable")
			}
			if err := svc.Health(cmd.Context()); err != nil {
				return err
			}
			a.printf("%s %s\n", styleSuccess.Render("ok"), a.cfg.API.BaseURL)
			return nil
		},
	}
}

func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			if a.cfg.File != "" {
				a.println(styleMuted.Render("# " + a.cfg.File))
			}
			_, err = a.out.Write(out)
			return err
		},
	})
	return cmd
}
