package cli

import (
	"github.com/spf13/cobra"
)

func newProfileCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect the logged-in user's profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.client().GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			return printTable(cmd.OutOrStdout(), []string{"field", "value"}, [][]string{
				{"id", p.ID},
				{"principal", p.PrincipalID},
				{"name", p.Name},
				{"job", p.Job},
				{"experience", p.Experience},
				{"blog style", p.BlogStyle},
				{"admin", yesNo(p.IsAdmin)},
				{"avatar", derefOr(p.AvatarURL, "-")},
			})
		},
	})
	return cmd
}
