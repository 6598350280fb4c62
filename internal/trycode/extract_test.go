package trycode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ezerfernandes/trypub/internal/trycode"
)

func counter() func() string {
	n := 0

	return func() string {
		n++

		return "gen" + string(rune('0'+n))
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	src := "```js{try id=hello}\nconsole.log(\"hi\")\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("a.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, &trycode.Block{
		ID:        "hello",
		Language:  "js",
		Code:      `console.log("hi")`,
		FilePath:  "a.md",
		StartLine: 1,
		EndLine:   3,
	}, blocks[0])
}

func TestExtractTrimsOnlyOuterWhitespace(t *testing.T) {
	t.Parallel()

	src := "```py{try id=loop}\n\n\nfor i in range(3):\n    print(i)\n\n\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("b.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "for i in range(3):\n    print(i)", blocks[0].Code)
}

func TestExtractSkipsOtherBlocks(t *testing.T) {
	t.Parallel()

	src := "" +
		"```js\nplain()\n```\n\n" +
		"```js {try id=spaced}\nspaced()\n```\n\n" +
		"~~~js{try id=tilde}\ntilde()\n~~~\n\n" +
		"```js{tryhard id=nope}\nnope()\n```\n\n" +
		"```js{try foo=bar}\nattrs()\n```\n\n" +
		"```js{try id=a extra}\nextra()\n```\n\n" +
		"```js{try id=kept}\nkept()\n```\n\n" +
		"```js{try id=open}\nnever closed\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("c.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "kept", blocks[0].ID)
}

func TestExtractNoBlocks(t *testing.T) {
	t.Parallel()

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("d.md", []byte("# Nothing\n\ntext\n"))
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestExtractLongerFenceKeepsInnerFence(t *testing.T) {
	t.Parallel()

	src := "````md{try id=nested}\n```js\ninner()\n```\n````\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("e.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "```js\ninner()\n```", blocks[0].Code)
}

func TestExtractInnerTripleFenceEndsBlock(t *testing.T) {
	t.Parallel()

	src := "```md{try id=cut}\nbefore\n```\nafter\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("f.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "before", blocks[0].Code)
}

func TestExtractIgnoresMalformedInfoOnOtherFences(t *testing.T) {
	t.Parallel()

	src := "```text don't\nprose\n```\n\n```js{try id=hello}\nconsole.log(1)\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("a.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, "hello", blocks[0].ID)
	assert.Equal(t, "console.log(1)", blocks[0].Code)
}

func TestExtractMalformedMarker(t *testing.T) {
	t.Parallel()

	src := "# Quote\n\n```js{try id=\"open}\nx()\n```\n"

	for _, policy := range []trycode.IDPolicy{trycode.Strict(), trycode.Permissive(nil)} {
		_, err := trycode.NewExtractor(policy).Extract("docs/m.md", []byte(src))
		require.ErrorIs(t, err, trycode.ErrInvalidID)
		assert.Contains(t, err.Error(), "docs/m.md:3")
	}
}

func TestExtractInsideHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		ids   []string
		codes []string
	}{
		{
			name:  "div",
			src:   "<div>\n```js{try id=wrapped}\nconsole.log(1)\n```\n</div>\n",
			ids:   []string{"wrapped"},
			codes: []string{"console.log(1)"},
		},
		{
			name: "two blocks",
			src: "# Tabs\n\n<Tabs>\n```js{try id=one}\none()\n```\n" +
				"```ts{try id=two}\ntwo()\n```\n</Tabs>\n",
			ids:   []string{"one", "two"},
			codes: []string{"one()", "two()"},
		},
		{
			name:  "mixed with plain fences",
			src:   "<div>\n```sh\nls\n```\n```py{try id=py}\nprint(1)\n```\n</div>\n\n```js{try id=after}\nafter()\n```\n",
			ids:   []string{"py", "after"},
			codes: []string{"print(1)", "after()"},
		},
		{
			name: "unclosed",
			src:  "<div>\n```js{try id=open}\nopen()\n</div>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("w.md", []byte(tt.src))
			require.NoError(t, err)
			require.Len(t, blocks, len(tt.ids))

			for i, block := range blocks {
				assert.Equal(t, tt.ids[i], block.ID)
				assert.Equal(t, tt.codes[i], block.Code)
			}
		})
	}
}

func TestExtractWarnsOnUnclosedTryBlock(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ex := trycode.NewExtractor(trycode.Strict(), trycode.WithLogger(zap.New(core)))

	src := "# Page\n\n<div>\n```js{try id=gap}\nfirst()\n\nsecond()\n```\n</div>\n"

	blocks, err := ex.Extract("docs/gap.md", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, blocks)

	entries := logs.FilterMessage("unclosed try block skipped").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "docs/gap.md", entries[0].ContextMap()["file"])
	assert.Equal(t, int64(4), entries[0].ContextMap()["line"])
}

func TestExtractStrictMissingID(t *testing.T) {
	t.Parallel()

	src := "```js{try id=ok}\nok()\n```\n\n```js{try}\nanon()\n```\n"

	_, err := trycode.NewExtractor(trycode.Strict()).Extract("docs/page.md", []byte(src))
	require.ErrorIs(t, err, trycode.ErrMissingID)
	assert.Contains(t, err.Error(), "docs/page.md")
}

func TestExtractPermissiveSynthesizesID(t *testing.T) {
	t.Parallel()

	src := "```js{try}\none()\n```\n\n```ts{try}\ntwo()\n```\n\n```js{try id=three}\nthree()\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Permissive(counter())).Extract("g.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, "gen1", blocks[0].ID)
	assert.Equal(t, "gen2", blocks[1].ID)
	assert.Equal(t, "three", blocks[2].ID)
	assert.Equal(t, "ts", blocks[1].Language)
}

func TestExtractPermissiveRandomIDsDiffer(t *testing.T) {
	t.Parallel()

	src := "```js{try}\none()\n```\n\n```js{try}\ntwo()\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Permissive(nil)).Extract("h.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.NotEmpty(t, blocks[0].ID)
	assert.NotEmpty(t, blocks[1].ID)
	assert.NotEqual(t, blocks[0].ID, blocks[1].ID)
}

func TestExtractInvalidID(t *testing.T) {
	t.Parallel()

	for _, policy := range []trycode.IDPolicy{trycode.Strict(), trycode.Permissive(nil)} {
		_, err := trycode.NewExtractor(policy).Extract("i.md", []byte("```js{try id=bad.id}\nx\n```\n"))
		require.ErrorIs(t, err, trycode.ErrInvalidID)
		assert.Contains(t, err.Error(), "i.md")

		_, err = trycode.NewExtractor(policy).Extract("j.md", []byte("```js{try id=}\nx\n```\n"))
		require.ErrorIs(t, err, trycode.ErrInvalidID)
	}
}

func TestExtractFrontMatterOptOut(t *testing.T) {
	t.Parallel()

	body := "```js{try id=x}\nx()\n```\n"

	blocks, err := trycode.NewExtractor(trycode.Strict()).Extract("k.md", []byte("---\ntry: false\n---\n\n"+body))
	require.NoError(t, err)
	assert.Empty(t, blocks)

	blocks, err = trycode.NewExtractor(trycode.Strict()).Extract("l.md", []byte("---\ntitle: Page\n---\n\n"+body))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 5, blocks[0].StartLine)
}

func TestExtractDuplicateIDsAcrossFiles(t *testing.T) {
	t.Parallel()

	ex := trycode.NewExtractor(trycode.Strict())
	src := []byte("```js{try id=same}\nx()\n```\n")

	first, err := ex.Extract("one.md", src)
	require.NoError(t, err)

	second, err := ex.Extract("two.md", src)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].FilePath, second[0].FilePath)
}
