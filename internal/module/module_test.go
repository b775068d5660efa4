package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// plugin.Open against a real .so requires `go build -buildmode=plugin`,
// which this module's build never performs, so coverage here is limited
// to the error path any environment can exercise: a nonexistent file.

func TestLoadMissingFileErrors(t *testing.T) {
	l := NewLoader(t.TempDir())
	scope, err := l.Load("does-not-exist")
	assert.Error(t, err)
	assert.Nil(t, scope)
}

func TestLoadEmptyDirUsesNameAsPath(t *testing.T) {
	l := NewLoader("")
	scope, err := l.Load("/nowhere/missing.so")
	assert.Error(t, err)
	assert.Nil(t, scope)
}

func TestUnloadWithNoLoadedPluginsIsNoop(t *testing.T) {
	l := NewLoader(t.TempDir())
	assert.NoError(t, l.Unload())
}
