package cmd

import (
	_ "embed"
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

//go:embed help/list.md
var listHelp string

func listCmd(opts *options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List try blocks without uploading them",
		Long:    listHelp,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd, "")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			blocks, err := opts.collect(cmd.Context(), idPolicy(strict))
			if err != nil {
				return err
			}

			tbl := table.New("ID", "Language", "File", "Lines").WithWriter(cmd.OutOrStdout())

			for _, block := range blocks {
				tbl.AddRow(block.ID, block.Language, block.FilePath, fmt.Sprintf("%d-%d", block.StartLine, block.EndLine))
			}

			tbl.Print()

			return nil
		},

		DisableAutoGenTag: true,
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "require an explicit id on every block")

	return cmd
}
