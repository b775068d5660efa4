package jary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

const loginRuleSource = `
ingress login {
    field:
        user string
        success bool
}

rule suspicious_login {
    match:
        $login.user exact "bob"
    output:
        $login.user
        $login.success
}
`

func openHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestCompileProducesUsableProgram(t *testing.T) {
	h := openHandle(t)
	result := h.Compile(loginRuleSource)
	assert.True(t, result.Ok, "diagnostics: %v", result.Diagnostics)
	assert.Empty(t, result.Diagnostics)
}

func TestCompileSyntaxErrorIsNotOk(t *testing.T) {
	h := openHandle(t)
	result := h.Compile("rule broken { match: $nope")
	assert.False(t, result.Ok)
	assert.NotEmpty(t, result.Diagnostics)
}

func TestInsertEventBeforeCompileErrors(t *testing.T) {
	h := openHandle(t)
	err := h.InsertEvent("login", []string{"user"}, []value.Value{value.NewStr("bob")})
	assert.Error(t, err)
}

func TestExecuteEmitsMatchingRowOnly(t *testing.T) {
	h := openHandle(t)
	result := h.Compile(loginRuleSource)
	require.True(t, result.Ok, "diagnostics: %v", result.Diagnostics)

	require.NoError(t, h.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("bob"), value.NewBool(true)}))
	require.NoError(t, h.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("alice"), value.NewBool(false)}))

	var rows []OutputView
	var invocationID string
	h.OnOutput(func(rule, invID string, row OutputView) {
		assert.Equal(t, "suspicious_login", rule)
		invocationID = invID
		rows = append(rows, row)
	})

	require.NoError(t, h.Execute())

	assert.NotEmpty(t, invocationID)
	require.Len(t, rows, 1, "only bob's row should match the exact predicate")
	assert.Equal(t, 2, rows[0].Len())
	assert.Equal(t, "bob", rows[0].StrAt(0))
	assert.Equal(t, value.Str, rows[0].KindAt(0))
	assert.Equal(t, value.Bool, rows[0].KindAt(1))
	assert.True(t, rows[0].BoolAt(1))
}

func TestExecuteBeforeCompileErrors(t *testing.T) {
	h := openHandle(t)
	err := h.Execute()
	assert.Error(t, err)
}

func TestCloseIsIdempotentFriendly(t *testing.T) {
	h, err := Open(":memory:", "")
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.NoError(t, h.Close(), "a second Close must be a no-op")
}

func TestCompileFileResolvesIncludeRelativeToItsOwnDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.jary"),
		[]byte("ingress login {\n    field:\n        user string\n        success bool\n}\n"), 0o644))

	rulePath := filepath.Join(dir, "rule.jary")
	require.NoError(t, os.WriteFile(rulePath, []byte(
		"include \"schema.jary\"\n"+
			"rule suspicious_login {\n    match:\n        $login.user exact \"bob\"\n    output:\n        $login.user\n}\n"),
		0o644))

	h := openHandle(t)
	result := h.CompileFile(rulePath)
	require.True(t, result.Ok, "diagnostics: %v", result.Diagnostics)

	require.NoError(t, h.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("bob"), value.NewBool(true)}))

	var rows []OutputView
	h.OnOutput(func(rule, invID string, row OutputView) { rows = append(rows, row) })
	require.NoError(t, h.Execute())
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].StrAt(0))
}

func TestCompileFileMissingIncludeIsReportedNotSilentlyDropped(t *testing.T) {
	dir := t.TempDir()
	rulePath := filepath.Join(dir, "rule.jary")
	require.NoError(t, os.WriteFile(rulePath, []byte("include \"nope.jary\"\n"), 0o644))

	h := openHandle(t)
	result := h.CompileFile(rulePath)
	assert.False(t, result.Ok)
	require.NotEmpty(t, result.Diagnostics)
}
