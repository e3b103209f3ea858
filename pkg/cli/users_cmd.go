package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newUsersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin only)",
	}
	cmd.AddCommand(newUsersListCmd(opts))
	cmd.AddCommand(newUsersCreateCmd(opts))
	cmd.AddCommand(newUsersDeleteCmd(opts))
	cmd.AddCommand(newUsersSetPasswordCmd(opts))
	cmd.AddCommand(newUsersSetAdminCmd(opts))
	return cmd
}

func newUsersListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := opts.client().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), users)
			}
			return printUsers(cmd, users)
		},
	}
}

func printUsers(cmd *cobra.Command, users []User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.ID, u.Email, derefOr(&u.Name, "-"), yesNo(u.IsAdmin), derefOr(u.AvatarURL, "-"),
			u.CreatedAt.Format(time.DateOnly),
		})
	}
	return printTable(cmd.OutOrStdout(), []string{"id", "email", "name", "admin", "avatar", "created"}, rows)
}

func newUsersCreateCmd(opts *options) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account and its profile",
		Example: `  blogmate users create --email kim@example.com --name "Kim"
  echo 's3cret!' | blogmate users create --email kim@example.com --name "Kim"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFlagOrPrompt(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			u, err := opts.client().CreateUser(cmd.Context(), email, pw, name)
			if err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), u)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUsersDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printStatus(cmd, opts, "deleted", args[0], "Deleted user %s\n")
		},
	}
}

func newUsersSetPasswordCmd(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set-password <user-id>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlagOrPrompt(cmd, password, "New password: ")
			if err != nil {
				return err
			}
			if err := opts.client().SetPassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			return printStatus(cmd, opts, "updated", args[0], "Password updated for %s\n")
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when omitted)")
	return cmd
}

func newUsersSetAdminCmd(opts *options) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "set-admin <user-id>",
		Short: "Grant or revoke administrator rights",
		Example: `  blogmate users set-admin u-123
  blogmate users set-admin u-123 --revoke`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().SetAdmin(cmd.Context(), args[0], !revoke); err != nil {
				return err
			}
			format := "Granted admin to %s\n"
			if revoke {
				format = "Revoked admin from %s\n"
			}
			return printStatus(cmd, opts, "updated", args[0], format)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke instead of grant")
	return cmd
}

func printStatus(cmd *cobra.Command, opts *options, status, id, format string) error {
	if opts.json() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"status": status, "id": id})
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, id)
	return nil
}
