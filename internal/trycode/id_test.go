package trycode_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezerfernandes/trypub/internal/trycode"
)

func TestRandomID(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`^[0-9a-z]{7}$`)
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		id := trycode.RandomID()
		assert.Regexp(t, re, id)

		seen[id] = struct{}{}
	}

	assert.Greater(t, len(seen), 95)
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	id, err := trycode.Strict().ResolveID("a.md", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", id)

	_, err = trycode.Strict().ResolveID("a.md", "")
	require.ErrorIs(t, err, trycode.ErrMissingID)

	id, err = trycode.Permissive(func() string { return "fixed" }).ResolveID("a.md", "")
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	id, err = trycode.Permissive(nil).ResolveID("a.md", "kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", id)
}
