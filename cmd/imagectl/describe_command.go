package main

import (
	"fmt"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/backend"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var endpoint string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "describe <image>",
		Short: "Ask a caption service to describe a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backend.ValidateEndpoint(endpoint); err != nil {
				return err
			}
			data, err := afero.ReadFile(ctx.fs, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			client := backend.NewCaptionClient("custom", endpoint, backend.NewHTTPClient(timeout))
			desc, err := client.Describe(cmd.Context(), data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:5000/caption", "Caption service URL")
	cmd.Flags().DurationVar(&timeout, "timeout", backend.DefaultTimeout, "Request timeout")

	return cmd
}
