package include

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/token"
)

func TestResolveWithNoIncludeIsUnchangedModuloEOF(t *testing.T) {
	toks, err := Resolve("rule r {\n    match:\n        $e.f exact 1\n}\n", ".")
	require.NoError(t, err)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)

	var sawInclude bool
	for _, tk := range toks {
		if tk.Kind == token.INCLUDE {
			sawInclude = true
		}
	}
	assert.False(t, sawInclude)
}

func TestResolveSplicesFileContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.jary"),
		[]byte("ingress login {\n    field:\n        user string\n}\n"), 0o644))

	src := "include \"shared.jary\"\nrule r {\n    match:\n        $login.user exact \"x\"\n}\n"
	toks, err := Resolve(src, dir)
	require.NoError(t, err)

	var sawInclude, sawIngress, sawRule bool
	for _, tk := range toks {
		switch tk.Kind {
		case token.INCLUDE:
			sawInclude = true
		case token.INGRESS:
			sawIngress = true
		case token.RULE:
			sawRule = true
		}
	}
	assert.False(t, sawInclude, "the include directive itself must not survive resolution")
	assert.True(t, sawIngress, "the included file's declaration must be spliced in")
	assert.True(t, sawRule, "the including file's own declaration must still be present")
}

func TestResolveNestedIncludeResolvesRelativeToItsOwnFile(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner.jary"),
		[]byte("ingress inner {\n    field:\n        f string\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "outer.jary"),
		[]byte("include \"inner.jary\"\n"), 0o644))

	src := "include \"sub/outer.jary\"\n"
	toks, err := Resolve(src, root)
	require.NoError(t, err)

	var sawIngress bool
	for _, tk := range toks {
		if tk.Kind == token.INGRESS {
			sawIngress = true
		}
	}
	assert.True(t, sawIngress, "a nested include must resolve relative to the file that names it, not the root")
}

func TestResolveMissingFileErrors(t *testing.T) {
	_, err := Resolve("include \"does-not-exist.jary\"\n", t.TempDir())
	assert.Error(t, err)
}

func TestResolveMissingPathStringErrors(t *testing.T) {
	_, err := Resolve("include\n", ".")
	assert.Error(t, err)
}

func TestResolveCycleErrorsInsteadOfHanging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loop.jary")
	require.NoError(t, os.WriteFile(path, []byte("include \"loop.jary\"\n"), 0o644))

	_, err := Resolve("include \"loop.jary\"\n", dir)
	assert.Error(t, err)
}
