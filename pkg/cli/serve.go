package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/settings-sdk/pkg/protocol"
)

func (a *app) newRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request",
		Short: "Answer one encoded protocol request read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return sysErr("read request: %w", err)
			}
			out, status := a.dispatcher().Respond(raw)
			if err := a.codec.WriteFrame(cmd.OutOrStdout(), out); err != nil {
				return sysErr("write response: %w", err)
			}
			if status == protocol.StatusError {
				return errErrorStatus
			}
			return nil
		},
	}
}

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer a stream of protocol requests until stdin closes",
		Long: "serve reads requests from stdin and writes one response per request to stdout.\n" +
			"JSON requests are one per line; CBOR requests are concatenated data items.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("serving", "encoding", a.codec.Name())
			if err := a.dispatcher().Serve(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return sysErr("serve: %w", err)
			}
			a.logger.Info("input closed")
			return nil
		},
	}
}
