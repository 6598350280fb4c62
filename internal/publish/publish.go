// Package publish sends try blocks to a remote service.
package publish

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/ezerfernandes/trypub/internal/trycode"
)

// Publisher uploads one block. Implementations must be safe to call
// repeatedly for the same id; the remote side keeps the last write.
type Publisher interface {
	Publish(ctx context.Context, block *trycode.Block) error
}

// PublisherFunc adapts a function to [Publisher].
type PublisherFunc func(ctx context.Context, block *trycode.Block) error

func (f PublisherFunc) Publish(ctx context.Context, block *trycode.Block) error {
	return f(ctx, block)
}

// FailurePolicy decides what a failed publish does to the rest of the run.
type FailurePolicy int

const (
	// ContinueOnError logs the failure and moves on to the next block.
	ContinueOnError FailurePolicy = iota
	// AbortOnError stops the run at the first failure.
	AbortOnError
)

func (p FailurePolicy) String() string {
	switch p {
	case ContinueOnError:
		return "continue"
	case AbortOnError:
		return "abort"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// Failure records a block that could not be published.
type Failure struct {
	ID   string
	File string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.ID, f.File, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarizes a run.
type Report struct {
	Files     int
	Blocks    int
	Published int
	Failures  []Failure
}

// Err combines the tolerated failures, or returns nil when there are none.
func (r *Report) Err() error {
	var err error

	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}

	return err
}

func (r *Report) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d file(s), %d block(s), %d published", r.Files, r.Blocks, r.Published)

	if len(r.Failures) != 0 {
		fmt.Fprintf(&sb, ", %d failed", len(r.Failures))
	}

	return sb.String()
}
