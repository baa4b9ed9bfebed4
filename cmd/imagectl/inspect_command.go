package main

import (
	"errors"
	"fmt"

	"github.com/UnendingLoop/ImageAble/internal/imageproc"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>...",
		Short: "Show metadata embedded into images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			var failed error

			for _, path := range args {
				row, err := inspectFile(ctx.fs, path)
				if err != nil {
					// остальные файлы все равно показываем
					failed = errors.Join(failed, err)
					rows = append(rows, []string{path, "-", err.Error(), ""})
					continue
				}
				rows = append(rows, row)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Type", "Description", "Evaluation"},
				rows,
			))
			return failed
		},
	}
}

func inspectFile(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	format, err := imageproc.DetectFormat(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	meta, err := imageproc.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return []string{path, model.GetCType[format], meta.Description, meta.Evaluation}, nil
}
