package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password and save the token to the active profile",
		Long: "Exchange email and password for a bearer token. Only servers running the local identity " +
			"backend offer password login; with an external identity provider pass --token instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := opts.config.ActiveProfileName(opts.profile)
			p := opts.config.Profiles[name]
			if email == "" {
				email = p.Email
			}
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := passwordFlagOrPrompt(cmd, password, "Password for "+email+": ")
			if err != nil {
				return err
			}

			res, err := opts.client().Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}

			p.Host = opts.host
			p.Email = email
			p.Token = res.AccessToken
			opts.config.Profiles[name] = p
			if opts.config.CurrentProfile == "" {
				opts.config.CurrentProfile = name
			}
			if err := SaveUserConfig(opts.config); err != nil {
				return err
			}

			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"profile":    name,
					"email":      email,
					"expires_at": res.ExpiresAt,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (profile %q, expires %s)\n",
				email, name, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (defaults to the profile's email)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}
