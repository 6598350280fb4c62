package mdcode

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var reInfo = regexp.MustCompile(`\s*(\w+)\s*(.*)\s*`)

// Walker is a callback invoked for each fenced code block found in a Markdown
// document. Returning an error stops the walk.
type Walker func(block *Block) error

// Walk parses a Markdown document and calls walker for every fenced code block,
// in document order. Fences written inside raw HTML blocks, such as a sample
// wrapped in a <div>, are reported too. Malformed info string metadata does
// not stop the walk, it is reported in [Block.MetaErr].
func Walk(source []byte, walker Walker) error {
	parser := goldmark.DefaultParser()
	reader := text.NewReader(source)
	root := parser.Parse(reader).OwnerDocument()

	return ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		node = transformCommentedCodeBlock(node, entering, source)

		if html, ok := node.(*ast.HTMLBlock); ok && !entering {
			for _, fcb := range htmlFencedCodeBlocks(html, source) {
				if err := walker(extractBlock(fcb, source)); err != nil {
					return ast.WalkStop, err
				}
			}

			return ast.WalkContinue, nil
		}

		fcb := asFencedCodeBlock(node, entering)
		if fcb == nil {
			return ast.WalkContinue, nil
		}

		if err := walker(extractBlock(fcb, source)); err != nil {
			return ast.WalkStop, err
		}

		return ast.WalkContinue, nil
	})
}

func asFencedCodeBlock(node ast.Node, entering bool) *ast.FencedCodeBlock {
	if entering || node.Kind() != ast.KindFencedCodeBlock {
		return nil
	}

	if fcb, ok := node.(*ast.FencedCodeBlock); ok {
		return fcb
	}

	return nil
}

func extractBlock(fcb *ast.FencedCodeBlock, source []byte) *Block {
	block := &Block{Code: extractCode(fcb, source)}

	block.Lang, block.Meta, block.MetaErr = extractInfo(fcb, source)
	if fcb.Info != nil {
		block.Info = string(bytes.TrimSpace(fcb.Info.Text(source)))
	}

	block.StartLine, block.EndLine = extractLines(fcb, source)
	block.Fence, block.Closed = extractFence(fcb, source)

	return block
}

func extractLines(fcb *ast.FencedCodeBlock, source []byte) (int, int) {
	var startLine, endLine int

	if fcb.Info != nil {
		startLine = lineAt(source, fcb.Info.Segment.Start)
	} else {
		lines := fcb.Lines()
		if lines.Len() > 0 {
			startLine = lineAt(source, lines.At(0).Start) - 1
		}
	}

	lines := fcb.Lines()
	if lines.Len() > 0 {
		endLine = lineAt(source, lines.At(lines.Len()-1).Stop)
	} else if startLine > 0 {
		endLine = startLine + 1
	}

	return startLine, endLine
}

func lineAt(source []byte, offset int) int {
	line := 1

	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}

	return line
}

// extractFence returns the opening fence run and whether a closing fence of
// the same character and at least the same length follows the body.
func extractFence(fcb *ast.FencedCodeBlock, source []byte) (string, bool) {
	lines := fcb.Lines()

	var opening, after int

	switch {
	case fcb.Info != nil:
		opening = fcb.Info.Segment.Start
	case lines.Len() > 0 && lines.At(0).Start > 0:
		opening = lines.At(0).Start - 1
	default:
		return "", false
	}

	start := bytes.LastIndexByte(source[:opening], '\n') + 1
	end := opening
	if fcb.Info == nil {
		end = bytes.IndexByte(source[start:], '\n')
		if end < 0 {
			end = len(source)
		} else {
			end += start
		}
	}

	fence := fenceRun(bytes.TrimSpace(source[start:end]))
	if len(fence) == 0 {
		return "", false
	}

	if lines.Len() > 0 {
		after = lines.At(lines.Len() - 1).Stop
	} else {
		after = nextLine(source, opening)
	}

	return string(fence), isClosingFence(lineFrom(source, after), fence)
}

// fenceRun returns the trailing run of backticks or tildes, dropping any
// container prefix such as a list marker or blockquote.
func fenceRun(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	c := prefix[len(prefix)-1]
	if c != '`' && c != '~' {
		return nil
	}

	i := len(prefix)
	for i > 0 && prefix[i-1] == c {
		i--
	}

	return prefix[i:]
}

func nextLine(source []byte, offset int) int {
	idx := bytes.IndexByte(source[offset:], '\n')
	if idx < 0 {
		return len(source)
	}

	return offset + idx + 1
}

func lineFrom(source []byte, offset int) []byte {
	if offset >= len(source) {
		return nil
	}

	return source[offset:nextLine(source, offset)]
}

func isClosingFence(line, fence []byte) bool {
	line = bytes.TrimSpace(line)

	run := fenceRun(line)
	if len(run) < len(fence) || run[0] != fence[0] {
		return false
	}

	return len(bytes.Trim(line[:len(line)-len(run)], "> \t")) == 0
}

func extractCode(fcb *ast.FencedCodeBlock, source []byte) []byte {
	var buff bytes.Buffer

	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)

		buff.Write(seg.Value(source))
	}

	return buff.Bytes()
}

func extractInfo(fcb *ast.FencedCodeBlock, source []byte) (string, Meta, error) {
	if fcb.Info == nil {
		return "", nil, nil
	}

	return parseInfo(fcb.Info.Text(source))
}

func parseInfo(text []byte) (string, Meta, error) {
	all := reInfo.FindSubmatch(text)
	if all == nil {
		return "", nil, nil
	}

	var (
		lang string
		meta Meta
		err  error
	)

	if len(all) > 1 {
		lang = string(all[1])
	}

	if len(all) <= 2 { //nolint:gomnd
		return lang, meta, nil
	}

	meta, err = ParseMeta(all[2])

	return lang, meta, err
}

var (
	reCommentedCodeBlock = regexp.MustCompile(`^\s*(<!--)?\s*<script\s*type=["']text/markdown["']\s*>\s*$`)
	reFences             = regexp.MustCompile("^\\s*```")
	reFenceOpen          = regexp.MustCompile("^\\s*(`{3,}|~{3,})")
)

func transformCommentedCodeBlock(node ast.Node, entering bool, source []byte) ast.Node { //nolint:ireturn
	if entering || node.Kind() != ast.KindHTMLBlock {
		return node
	}

	html, ok := node.(*ast.HTMLBlock)
	if !ok {
		return node
	}

	const minLines = 2

	lines := html.Lines()
	if lines.Len() < minLines {
		return node
	}

	seg := lines.At(0)
	line := seg.Value(source)

	if !reCommentedCodeBlock.Match(line) {
		return node
	}

	seg = lines.At(1)
	line = seg.Value(source)

	loc := reFences.FindIndex(line)
	if loc == nil {
		return node
	}

	info := ast.NewTextSegment(text.NewSegment(seg.Start+loc[1], seg.Stop-1))
	fcb := ast.NewFencedCodeBlock(info)

	seg = lines.At(lines.Len() - 1)
	line = seg.Value(source)

	if !reFences.Match(line) {
		return node
	}

	segs := text.NewSegments()

	for i := 2; i < lines.Len()-1; i++ {
		segs.Append(lines.At(i))
	}

	fcb.SetLines(segs)

	return fcb
}

// htmlFencedCodeBlocks finds fences written as plain lines of a raw HTML
// block, which CommonMark does not parse as code. A fence with no closing
// line runs to the end of the HTML block and is reported as not closed.
func htmlFencedCodeBlocks(html *ast.HTMLBlock, source []byte) []*ast.FencedCodeBlock {
	var blocks []*ast.FencedCodeBlock

	lines := html.Lines()

	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := source[seg.Start:seg.Stop]

		loc := reFenceOpen.FindSubmatchIndex(line)
		if loc == nil {
			continue
		}

		fence := line[loc[2]:loc[3]]
		stop := seg.Start + len(bytes.TrimRight(line, "\r\n"))

		if fence[0] == '`' && bytes.IndexByte(source[seg.Start+loc[1]:stop], '`') >= 0 {
			continue
		}

		fcb := ast.NewFencedCodeBlock(ast.NewTextSegment(text.NewSegment(seg.Start+loc[1], stop)))
		body := text.NewSegments()

		j := i + 1
		for ; j < lines.Len(); j++ {
			next := lines.At(j)
			if isClosingFence(next.Value(source), fence) {
				break
			}

			body.Append(lines.At(j))
		}

		fcb.SetLines(body)
		blocks = append(blocks, fcb)

		i = j
	}

	return blocks
}
