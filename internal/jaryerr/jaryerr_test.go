package jaryerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListAccumulatesInOrder(t *testing.T) {
	var l List
	l.Addf(ParseError, 1, 2, 3, 4, "bad token %q", "x")
	l.Addf(CompileError, 5, 6, 7, 8, "duplicate %s", "rule")

	assert.True(t, l.HasErrors())
	assert.Equal(t, 2, l.Len())
	items := l.Items()
	assert.Equal(t, ParseError, items[0].Kind)
	assert.Equal(t, `bad token "x"`, items[0].Message)
	assert.Equal(t, CompileError, items[1].Kind)
}

func TestEmptyListHasNoErrors(t *testing.T) {
	var l List
	assert.False(t, l.HasErrors())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Error())
}

func TestDiagnosticStringIncludesPosition(t *testing.T) {
	d := Diagnostic{Kind: RuntimeError, Message: "boom", Line: 10, Column: 3}
	assert.Contains(t, d.String(), "RuntimeError")
	assert.Contains(t, d.String(), "boom")
	assert.Contains(t, d.String(), "line 10")
	assert.Contains(t, d.String(), "col 3")
}

func TestListErrorJoinsAllDiagnostics(t *testing.T) {
	var l List
	l.Add(Diagnostic{Kind: ScanError, Message: "first"})
	l.Add(Diagnostic{Kind: ScanError, Message: "second"})
	s := l.Error()
	assert.Contains(t, s, "first")
	assert.Contains(t, s, "second")
}

func TestCodeStringCoversEveryValue(t *testing.T) {
	cases := map[Code]string{
		CodeOK:      "ok",
		CodeError:   "error",
		CodeOOM:     "out_of_memory",
		CodeCompile: "compile_error",
		CodeStorage: "storage_error",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
	assert.Equal(t, "unknown", Code(99).String())
}
