// Package cli implements the blogmate admin command-line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultHost = "http://localhost:8080"

// options holds the global flags after flag > env > profile resolution.
type options struct {
	host    string
	token   string
	output  string
	profile string

	// config is the loaded user config; set by PersistentPreRunE.
	config *UserConfig
}

func (o *options) client() *Client {
	return NewClient(o.host, o.token)
}

func (o *options) json() bool {
	return o.output == "json"
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &options{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if opts.json() {
			errObj := map[string]any{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				errObj["kind"] = apiErr.Kind
				errObj["request_id"] = apiErr.RequestID
			}
			_ = printJSON(stdout, errObj)
		} else {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "blogmate",
		Short:         "blogmate admin CLI",
		Long:          "Command-line interface for the blogmate account and KakaoTalk delegation API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			opts.config = cfg
			p := cfg.ActiveProfile(opts.profile)

			flags := cmd.Flags()
			resolve(&opts.host, flags.Changed("host"), "BLOGMATE_HOST", p.Host)
			resolve(&opts.token, flags.Changed("token"), "BLOGMATE_TOKEN", p.Token)
			resolve(&opts.output, flags.Changed("output"), "BLOGMATE_OUTPUT", p.Output)

			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			return validateHostURL(opts.host)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.host, "host", defaultHost, "API host URL")
	pf.StringVar(&opts.token, "token", "", "Bearer token for authentication")
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newUsersCmd(opts))
	rootCmd.AddCommand(newKakaoCmd(opts))
	rootCmd.AddCommand(newProfileCmd(opts))
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

// resolve applies env then profile values to a flag the user did not set.
func resolve(dst *string, changed bool, envKey, profileValue string) {
	if changed {
		return
	}
	if v := os.Getenv(envKey); v != "" {
		*dst = v
	} else if profileValue != "" {
		*dst = profileValue
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": version, "commit": commit})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "blogmate version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
