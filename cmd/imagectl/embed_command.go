package main

import (
	"fmt"

	"github.com/UnendingLoop/ImageAble/internal/imageproc"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newEmbedCommand(ctx *commandContext) *cobra.Command {
	var description, evaluation, output string

	cmd := &cobra.Command{
		Use:   "embed <image>",
		Short: "Write description and evaluation into the image metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			data, err := afero.ReadFile(ctx.fs, src)
			if err != nil {
				return fmt.Errorf("read %s: %w", src, err)
			}

			out, format, err := imageproc.Embed(data, description, evaluation)
			if err != nil {
				return fmt.Errorf("embed into %s: %w", src, err)
			}

			dst := output
			if dst == "" {
				dst = src
			}
			if err := afero.WriteFile(ctx.fs, dst, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Metadata written to %s (%s, %d bytes)\n", dst, model.GetCType[format], len(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Image description")
	cmd.Flags().StringVarP(&evaluation, "evaluation", "e", "", "Evaluation stored in the user comment")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: overwrite the input)")

	return cmd
}
