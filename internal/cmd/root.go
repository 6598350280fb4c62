// Package cmd implements the trypub command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/config"
	"github.com/ezerfernandes/trypub/internal/logging"
	"github.com/ezerfernandes/trypub/internal/publish"
	"github.com/ezerfernandes/trypub/internal/trycode"
)

type options struct {
	configFile string
	dir        string
	ext        string
	exclude    []string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the command line and exits with status 1 on error.
func Execute(args []string, stdout, stderr io.Writer) {
	if err := run(context.Background(), args, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "trypub: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := rootCmd()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func rootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{ //nolint:exhaustruct
		Use:   "trypub",
		Short: "Publish try-it code blocks from Markdown documentation",
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},

		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (toml, yaml or json)")
	flags.StringVar(&opts.dir, "dir", config.DefaultDir, "content directory to scan")
	flags.StringVar(&opts.ext, "ext", config.DefaultExt, "extension of the Markdown files")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "glob of files to skip, relative to --dir")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat, "console or json")

	root.AddCommand(
		storeCmd(opts),
		playgroundCmd(opts),
		listCmd(opts),
		execCmd(opts),
	)

	return root
}

// setup loads the configuration and builds the logger. envFile is loaded
// into the environment first when set.
func (o *options) setup(cmd *cobra.Command, envFile string) error {
	cfg, err := config.Load(config.Options{
		File:    o.configFile,
		EnvFile: envFile,
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger

	return nil
}

func (o *options) discoverer() (*trycode.Discoverer, error) {
	content := o.cfg.Content

	return trycode.NewDiscoverer(os.DirFS(content.Dir), ".",
		trycode.WithBase(content.Dir),
		trycode.WithExt(content.Ext),
		trycode.WithExclude(content.Exclude...),
	)
}

// collect extracts every block without publishing anything.
func (o *options) collect(ctx context.Context, policy trycode.IDPolicy) ([]*trycode.Block, error) {
	discoverer, err := o.discoverer()
	if err != nil {
		return nil, err
	}

	var blocks []*trycode.Block

	collector := publish.PublisherFunc(func(_ context.Context, block *trycode.Block) error {
		blocks = append(blocks, block)

		return nil
	})

	runner := publish.NewRunner(discoverer, trycode.NewExtractor(policy, trycode.WithLogger(o.logger)), collector, publish.AbortOnError, nil)
	if _, err := runner.Run(ctx); err != nil {
		return nil, err
	}

	return blocks, nil
}

func idPolicy(strict bool) trycode.IDPolicy {
	if strict {
		return trycode.Strict()
	}

	return trycode.Permissive(nil)
}
