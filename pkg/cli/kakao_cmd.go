package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newKakaoCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kakao",
		Short: "Manage the KakaoTalk connection of the logged-in user",
	}
	cmd.AddCommand(newKakaoStatusCmd(opts))
	cmd.AddCommand(newKakaoSendCmd(opts))
	cmd.AddCommand(newKakaoConnectCmd(opts))
	cmd.AddCommand(newKakaoDisconnectCmd(opts))
	return cmd
}

func newKakaoStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether KakaoTalk is connected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.client().KakaoStatus(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printTable(cmd.OutOrStdout(), []string{"connected", "expired"},
				[][]string{{yesNo(st.Connected), yesNo(st.Expired)}})
		},
	}
}

func newKakaoSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send a KakaoTalk message to yourself",
		Example: `  blogmate kakao send "새 글이 발행되었습니다"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.TrimSpace(strings.Join(args, " "))
			if msg == "" {
				return errors.New("message must not be empty")
			}
			if err := opts.client().KakaoSend(cmd.Context(), msg); err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"sent": true})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Message sent")
			return nil
		},
	}
}

func newKakaoConnectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Print the KakaoTalk consent URL to open in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := opts.client().KakaoAuthorizeURL(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"url": u})
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Open this URL in a browser to connect KakaoTalk:")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newKakaoDisconnectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the stored KakaoTalk credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.client().KakaoDisconnect(cmd.Context()); err != nil {
				return err
			}
			if opts.json() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"status": "disconnected"})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "KakaoTalk disconnected")
			return nil
		},
	}
}
