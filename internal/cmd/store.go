package cmd

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/publish"
	"github.com/ezerfernandes/trypub/internal/publish/jsonbin"
	"github.com/ezerfernandes/trypub/internal/trycode"
)

//go:embed help/store.md
var storeHelp string

func storeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "store",
		Aliases: []string{"extract"},
		Short:   "Store try blocks as JSON records (failures are logged, exit status is 0)",
		Long:    storeHelp,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.setup(cmd, ""); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trypub: %v\n", err)

				return nil
			}

			if err := storeRun(cmd.Context(), opts); err != nil {
				opts.logger.Error("store run failed", zap.Error(err))
			}

			return nil
		},

		DisableAutoGenTag: true,
	}

	return cmd
}

func storeRun(ctx context.Context, opts *options) error {
	cfg := opts.cfg.Store

	discoverer, err := opts.discoverer()
	if err != nil {
		return err
	}

	if cfg.DryRun {
		opts.logger.Info("dry run, set DRY_RUN=false to upload")
	}

	publisher := jsonbin.New(cfg, jsonbin.WithLogger(opts.logger))
	extractor := trycode.NewExtractor(trycode.Permissive(nil), trycode.WithLogger(opts.logger))
	runner := publish.NewRunner(discoverer, extractor, publisher, publish.ContinueOnError, opts.logger)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if len(report.Failures) != 0 {
		opts.logger.Warn("finished with failures", zap.Stringer("report", report), zap.Error(report.Err()))

		return nil
	}

	opts.logger.Info("finished", zap.Stringer("report", report))

	return nil
}
