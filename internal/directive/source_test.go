package directive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fib.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSource(t *testing.T) {
	path := writeSource(t, `package fib

//go:generate handoff
//handoff: model = "o1-preview"; seed = 20
//handoff: "Start the sequence with 1, 1."
  //handoff: seed = 21

func main() { println(fib(10)) }
`)
	src, err := LoadSource(path)
	require.NoError(t, err)

	assert.Equal(t, "fib", src.Package)
	assert.Equal(t, "o1-preview", src.Options.Model)
	assert.Equal(t, uint64(21), *src.Options.Seed)
	assert.Equal(t, "Start the sequence with 1, 1.", src.Options.Prompt)
	assert.Contains(t, src.Content, "func main()")
}

func TestLoadSourceMissingIsUnavailable(t *testing.T) {
	_, err := LoadSource(filepath.Join(t.TempDir(), "missing.go"))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = LoadSource("")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadSourceBadDirective(t *testing.T) {
	path := writeSource(t, "package fib\n\n//handoff: temperature = 1\n")
	_, err := LoadSource(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "fib.go:3:")
}

func TestLoadSourceWithoutPackageClause(t *testing.T) {
	src, err := LoadSource(writeSource(t, "x"))
	require.NoError(t, err)
	assert.Empty(t, src.Package)
	assert.Equal(t, "x", src.Content)
}
