package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigSetProfileCmd(opts))
	cmd.AddCommand(newConfigUseProfileCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *options) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", ConfigPath(), data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show tokens unmasked")
	return cmd
}

func maskConfig(cfg *UserConfig) *UserConfig {
	masked := &UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.Token = maskSecret(p.Token)
		masked.Profiles[name] = p
	}
	return masked
}

func newConfigSetProfileCmd(opts *options) *cobra.Command {
	var name, host, token, email, output string

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Example: `  blogmate config set-profile --name prod --host https://api.blogmate.example --email admin@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("host") {
				if err := validateHostURL(host); err != nil {
					return err
				}
			}
			if flags.Changed("output") {
				if err := validateOutputFormat(output); err != nil {
					return err
				}
			}

			cfg := opts.config
			p := cfg.Profiles[name]
			if flags.Changed("host") {
				p.Host = host
			}
			if flags.Changed("token") {
				p.Token = token
			}
			if flags.Changed("email") {
				p.Email = email
			}
			if flags.Changed("output") {
				p.Output = output
			}
			cfg.Profiles[name] = p

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	// These shadow the persistent flags of the same name.
	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&host, "host", "", "API host URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token")
	cmd.Flags().StringVar(&email, "email", "", "Default login email")
	cmd.Flags().StringVar(&output, "output", "", "Default output format")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newConfigUseProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, ok := opts.config.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			opts.config.CurrentProfile = name
			if err := SaveUserConfig(opts.config); err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok", "active_profile": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
