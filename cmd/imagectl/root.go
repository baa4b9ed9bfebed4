package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// commandContext - общее для всех команд: файловая система, чтобы тесты работали в памяти
type commandContext struct {
	fs afero.Fs
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	ctx := &commandContext{fs: fs}

	rootCmd := &cobra.Command{
		Use:           "imagectl",
		Short:         "ImageAble metadata and gallery tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newEmbedCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newDescribeCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
