package cmd

import (
	"context"
	_ "embed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/config"
	"github.com/ezerfernandes/trypub/internal/publish"
	"github.com/ezerfernandes/trypub/internal/publish/playground"
	"github.com/ezerfernandes/trypub/internal/trycode"
)

//go:embed help/playground.md
var playgroundHelp string

func playgroundCmd(opts *options) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "playground",
		Aliases: []string{"upload"},
		Short:   "Upload try blocks as playground projects (stops at the first failure)",
		Long:    playgroundHelp,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd, envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return playgroundRun(cmd.Context(), opts)
		},

		DisableAutoGenTag: true,
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file with the playground settings")

	return cmd
}

func playgroundRun(ctx context.Context, opts *options) error {
	discoverer, err := opts.discoverer()
	if err != nil {
		return err
	}

	publisher := playground.New(opts.cfg.Playground, playground.WithLogger(opts.logger))
	extractor := trycode.NewExtractor(trycode.Strict(), trycode.WithLogger(opts.logger))
	runner := publish.NewRunner(discoverer, extractor, publisher, publish.AbortOnError, opts.logger)

	report, err := runner.Run(ctx)
	if err != nil {
		opts.logger.Error("playground upload stopped", zap.Stringer("report", report), zap.Error(err))

		return err
	}

	opts.logger.Info("finished", zap.Stringer("report", report))

	return nil
}
