package trycode

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"

	"github.com/ezerfernandes/trypub/internal/mdcode"
)

const metaID = "id"

// reMarker matches the info string of a try block: a language tag directly
// followed by {try} or {try id=<id>}. The id value is validated separately so
// that a malformed id is reported instead of skipped.
var reMarker = regexp.MustCompile(`^(\w+)\{try(?:\s+id=[^\s}]*)?\}$`)

// Extractor turns Markdown source into try blocks.
type Extractor struct {
	policy IDPolicy
	logger *zap.Logger
}

// ExtractorOption configures an [Extractor].
type ExtractorOption func(*Extractor)

// WithLogger sets the logger that reports skipped try markers.
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor returns an Extractor resolving missing ids with policy.
func NewExtractor(policy IDPolicy, opts ...ExtractorOption) *Extractor {
	e := &Extractor{policy: policy, logger: zap.NewNop()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type pageMatter struct {
	Try *bool `yaml:"try" toml:"try" json:"try"`
}

// Extract returns the try blocks of source in document order. file is only
// used to fill [Block.FilePath] and error messages.
//
// Fences follow CommonMark: a block opened with three backticks ends at the
// first line of three or more backticks, so bodies that contain a fence must
// be opened with a longer one. Unterminated fences are ignored, and so are
// fences whose info string is not a try marker, even when it does not parse.
func (e *Extractor) Extract(file string, source []byte) ([]*Block, error) {
	if disabled(source) {
		return nil, nil
	}

	var blocks []*Block

	err := mdcode.Walk(source, func(mb *mdcode.Block) error {
		if !isTryBlock(mb) {
			if isBacktickFence(mb) && !mb.Closed && reMarker.MatchString(mb.Info) {
				e.logger.Warn("unclosed try block skipped", zap.String("file", file), zap.Int("line", mb.StartLine))
			}

			return nil
		}

		if mb.MetaErr != nil {
			return fmt.Errorf("%w in %s:%d: %w", ErrInvalidID, file, mb.StartLine, mb.MetaErr)
		}

		id, err := e.resolveID(file, mb)
		if err != nil {
			return err
		}

		blocks = append(blocks, &Block{
			ID:        id,
			Language:  mb.Lang,
			Code:      strings.TrimSpace(string(mb.Code)),
			FilePath:  file,
			StartLine: mb.StartLine,
			EndLine:   mb.EndLine,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}

func (e *Extractor) resolveID(file string, mb *mdcode.Block) (string, error) {
	declared := mb.Meta.Get(metaID)

	if mb.Meta.Has(metaID) {
		if err := validateID(declared); err != nil {
			return "", fmt.Errorf("%w %q in %s:%d: %w", ErrInvalidID, declared, file, mb.StartLine, err)
		}
	}

	return e.policy.ResolveID(file, declared)
}

func isTryBlock(mb *mdcode.Block) bool {
	return isBacktickFence(mb) && mb.Closed && reMarker.MatchString(mb.Info)
}

func isBacktickFence(mb *mdcode.Block) bool {
	return strings.HasPrefix(mb.Fence, "```")
}

// disabled reports whether the page opts out with "try: false" in its front
// matter. Pages whose front matter does not parse are scanned normally.
func disabled(source []byte) bool {
	var matter pageMatter

	if _, err := frontmatter.Parse(bytes.NewReader(source), &matter); err != nil {
		return false
	}

	return matter.Try != nil && !*matter.Try
}
