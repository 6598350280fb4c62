package mdcode_test

import (
	"errors"
	"testing"

	"github.com/ezerfernandes/trypub/internal/mdcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnfence(t *testing.T) {
	t.Parallel()

	src := "# Title\n\n```js{try id=hello}\nconsole.log(\"hi\")\n```\n\nText.\n\n```sh\nls\n```\n"

	blocks, err := mdcode.Unfence([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, "js", first.Lang)
	assert.Equal(t, "js{try id=hello}", first.Info)
	assert.Equal(t, "```", first.Fence)
	assert.True(t, first.Closed)
	assert.Equal(t, "console.log(\"hi\")\n", string(first.Code))
	assert.Equal(t, 3, first.StartLine)
	assert.True(t, first.Meta.Has("try"))
	assert.Equal(t, "hello", first.Meta.Get("id"))

	second := blocks[1]
	assert.Equal(t, "sh", second.Lang)
	assert.Empty(t, second.Meta)
	assert.Equal(t, "ls\n", string(second.Code))
}

func TestUnfenceLongerFence(t *testing.T) {
	t.Parallel()

	src := "````md{try id=nested}\n```js\ninner()\n```\n````\n"

	blocks, err := mdcode.Unfence([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "````", blocks[0].Fence)
	assert.True(t, blocks[0].Closed)
	assert.Equal(t, "```js\ninner()\n```\n", string(blocks[0].Code))
}

func TestUnfenceClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		fence  string
		closed bool
	}{
		{name: "closed", src: "```js\nx\n```\n", fence: "```", closed: true},
		{name: "closed at eof", src: "```js\nx\n```", fence: "```", closed: true},
		{name: "empty body", src: "```js\n```\n", fence: "```", closed: true},
		{name: "unclosed", src: "```js\nx\ny\n", fence: "```", closed: false},
		{name: "tilde", src: "~~~js\nx\n~~~\n", fence: "~~~", closed: true},
		{name: "no info", src: "```\nx\n```\n", fence: "```", closed: true},
		{name: "list item", src: "- item\n\n  ```sh\n  ls\n  ```\n", fence: "```", closed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			blocks, err := mdcode.Unfence([]byte(tt.src))
			require.NoError(t, err)
			require.Len(t, blocks, 1)

			assert.Equal(t, tt.fence, blocks[0].Fence)
			assert.Equal(t, tt.closed, blocks[0].Closed)
		})
	}
}

func TestUnfenceCommentedBlock(t *testing.T) {
	t.Parallel()

	src := "<script type=\"text/markdown\">\n```js{try id=hidden}\nrun()\n```\n"

	blocks, err := mdcode.Unfence([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "js", blocks[0].Lang)
	assert.Equal(t, "hidden", blocks[0].Meta.Get("id"))
	assert.Equal(t, "run()\n", string(blocks[0].Code))
}

func TestWalkStopsOnError(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	calls := 0

	err := mdcode.Walk([]byte("```a\n1\n```\n\n```b\n2\n```\n"), func(*mdcode.Block) error {
		calls++

		return errStop
	})

	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, calls)
}

func TestWalkReportsMetaError(t *testing.T) {
	t.Parallel()

	src := "```text don't\nprose\n```\n\n```js{try id=x}\nx()\n```\n"

	blocks, err := mdcode.Unfence([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	require.Error(t, blocks[0].MetaErr)
	assert.Nil(t, blocks[0].Meta)
	assert.Equal(t, "text", blocks[0].Lang)
	assert.True(t, blocks[0].Closed)

	require.NoError(t, blocks[1].MetaErr)
	assert.Equal(t, "x", blocks[1].Meta.Get("id"))
}

func TestUnfenceHTMLBlock(t *testing.T) {
	t.Parallel()

	src := "<div>\n```js{try id=wrapped}\nconsole.log(1)\n```\n~~~\nplain\n~~~\n</div>\n"

	blocks, err := mdcode.Unfence([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, "js", first.Lang)
	assert.Equal(t, "js{try id=wrapped}", first.Info)
	assert.Equal(t, "```", first.Fence)
	assert.True(t, first.Closed)
	assert.Equal(t, "console.log(1)\n", string(first.Code))
	assert.Equal(t, 2, first.StartLine)
	assert.Equal(t, 3, first.EndLine)

	second := blocks[1]
	assert.Equal(t, "~~~", second.Fence)
	assert.True(t, second.Closed)
	assert.Equal(t, "plain\n", string(second.Code))
}

func TestUnfenceNoBlocks(t *testing.T) {
	t.Parallel()

	blocks, err := mdcode.Unfence([]byte("just `inline` code\n"))
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
