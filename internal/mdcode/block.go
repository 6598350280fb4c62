package mdcode

// Block is a fenced code block found in a Markdown document.
type Block struct {
	Lang      string
	Info      string
	Fence     string
	Meta      Meta
	// MetaErr is set when the info string metadata does not parse. Meta is
	// nil in that case.
	MetaErr   error
	Code      []byte
	StartLine int
	EndLine   int
	Closed    bool
}

type Blocks []*Block
