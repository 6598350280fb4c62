package publish

import (
	"context"

	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/trycode"
)

// Runner moves blocks from a content tree to a publisher, one file and one
// block at a time.
type Runner struct {
	discoverer *trycode.Discoverer
	extractor  *trycode.Extractor
	publisher  Publisher
	policy     FailurePolicy
	logger     *zap.Logger
}

// NewRunner wires the pipeline. A nil logger discards output.
func NewRunner(
	discoverer *trycode.Discoverer,
	extractor *trycode.Extractor,
	publisher Publisher,
	policy FailurePolicy,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		discoverer: discoverer,
		extractor:  extractor,
		publisher:  publisher,
		policy:     policy,
		logger:     logger,
	}
}

// Run discovers files, then extracts and publishes each file's blocks before
// reading the next file. Discovery and extraction errors end the run. Publish
// errors end it only under [AbortOnError]; otherwise they are collected in the
// report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	files, err := r.discoverer.Discover()
	if err != nil {
		return report, err
	}

	r.logger.Debug("discovered files", zap.Int("count", len(files)))

	for _, file := range files {
		if err := r.runFile(ctx, file, report); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (r *Runner) runFile(ctx context.Context, file trycode.File, report *Report) error {
	source, err := r.discoverer.ReadFile(file)
	if err != nil {
		return err
	}

	report.Files++

	blocks, err := r.extractor.Extract(file.Name, source)
	if err != nil {
		return err
	}

	report.Blocks += len(blocks)

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := r.logger.With(
			zap.String("file", block.FilePath),
			zap.String("id", block.ID),
			zap.String("lang", block.Language),
		)

		if err := r.publisher.Publish(ctx, block); err != nil {
			if r.policy == AbortOnError {
				log.Error("publish failed, aborting", zap.Error(err))

				return Failure{ID: block.ID, File: block.FilePath, Err: err}
			}

			log.Error("publish failed", zap.Error(err))
			report.Failures = append(report.Failures, Failure{ID: block.ID, File: block.FilePath, Err: err})

			continue
		}

		report.Published++

		log.Info("published")
	}

	return nil
}
