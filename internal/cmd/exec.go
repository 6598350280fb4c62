package cmd

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ezerfernandes/trypub/internal/trycode"
)

//go:embed help/exec.md
var execHelp string

const (
	dirMode  = 0o750
	fileMode = 0o600
)

type blockInfo struct {
	id       string
	lang     string
	file     string
	tempPath string
}

func execCmd(opts *options) *cobra.Command {
	var (
		workDir string
		keep    bool
		strict  bool
	)

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "exec [flags] -- command",
		Aliases: []string{"e"},
		Short:   "Run a shell command on every try block",
		Long:    execHelp,
		Args:    cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd, "")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			scr := script(cmd, args)
			if len(scr) == 0 {
				return errMissingCommand
			}

			if !cmd.Flag("work-dir").Changed {
				dir, err := os.MkdirTemp("", "trypub-exec-")
				if err != nil {
					return err
				}

				workDir = dir

				if !keep {
					defer os.RemoveAll(dir)
				}
			}

			blocks, err := opts.collect(cmd.Context(), idPolicy(strict))
			if err != nil {
				return err
			}

			return execRun(cmd.Context(), blocks, workDir, scr, opts.logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},

		DisableAutoGenTag: true,
	}

	cmd.Flags().StringVar(&workDir, "work-dir", "", "directory for the block files (default a temporary directory)")
	cmd.Flags().BoolVarP(&keep, "keep", "k", false, "don't remove the temporary directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "require an explicit id on every block")

	return cmd
}

func script(cmd *cobra.Command, args []string) string {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return ""
	}

	return strings.Join(args[dash:], " ")
}

func execRun(ctx context.Context, blocks []*trycode.Block, dir, scr string, logger *zap.Logger, stdout, stderr io.Writer) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	var failures int

	for _, block := range blocks {
		info, err := writeBlock(block, absDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(stderr, "--- %s (%s) : %s ---\n", info.id, info.lang, info.file)

		exitCode, err := runCommand(ctx, expandCommand(scr, info, absDir), absDir, stdout, stderr)
		if err != nil {
			return err
		}

		if exitCode != 0 {
			failures++

			logger.Warn("command failed", zap.String("id", info.id), zap.String("file", info.file), zap.Int("exit", exitCode))
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d block(s) failed", failures)
	}

	return nil
}

func writeBlock(block *trycode.Block, dir string) (*blockInfo, error) {
	info := &blockInfo{
		id:       block.ID,
		lang:     block.Language,
		file:     block.FilePath,
		tempPath: filepath.Join(dir, block.ID+langExtension(block.Language)),
	}

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, err
	}

	if err := os.WriteFile(info.tempPath, []byte(block.Code+"\n"), fileMode); err != nil {
		return nil, err
	}

	return info, nil
}

func langExtension(lang string) string {
	if len(lang) > 0 {
		return "." + strings.ToLower(lang)
	}

	return ".txt"
}

func expandCommand(scr string, info *blockInfo, dir string) string {
	expanded := strings.ReplaceAll(scr, "{}", info.tempPath)
	expanded = strings.ReplaceAll(expanded, "{id}", info.id)
	expanded = strings.ReplaceAll(expanded, "{lang}", info.lang)
	expanded = strings.ReplaceAll(expanded, "{dir}", dir)

	return expanded
}

func runCommand(ctx context.Context, command, dir string, stdout, stderr io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return -1, err
	}

	runner, err := interp.New(interp.Dir(dir), interp.StdIO(nil, stdout, stderr))
	if err != nil {
		return -1, err
	}

	err = runner.Run(ctx, file)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return int(status), nil
		}

		return -1, err
	}

	return 0, nil
}

var errMissingCommand = errors.New("command is required after '--'")
