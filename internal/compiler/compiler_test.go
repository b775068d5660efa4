package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/parser"
	"github.com/CTRLRLTY/JARY-sub000/internal/scanner"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

func compileSource(t *testing.T, src string, loader ModuleLoader) Output {
	t.Helper()
	toks := scanner.ScanAll(src)
	presult := parser.Parse(toks)
	require.Empty(t, presult.Errs.Items(), "source must parse cleanly")
	return Compile(presult.Tree, presult.Tokens, loader)
}

func TestCompileIngressRecordsFieldOrderAndTypes(t *testing.T) {
	out := compileSource(t, "ingress login {\n    field:\n        user string\n        count long\n        ok bool\n}\n", nil)
	require.Empty(t, out.Errs.Items())
	require.Len(t, out.EventScopes, 1)

	var scope *EventScope
	for _, s := range out.EventScopes {
		scope = s
	}
	assert.Equal(t, []string{"__name__", "__arrival__", "user", "count", "ok"}, scope.FieldOrder)
	assert.Equal(t, []string{"TEXT", "INTEGER", "TEXT", "INTEGER", "INTEGER"}, scope.FieldTypes)
}

func TestCompileDuplicateIngressErrors(t *testing.T) {
	out := compileSource(t, "ingress login {\n    field:\n        user string\n}\ningress login {\n    field:\n        user string\n}\n", nil)
	assert.NotEmpty(t, out.Errs.Items())
}

func TestCompileRuleEmitsOneEntryPerRule(t *testing.T) {
	src := "ingress login {\n    field:\n        user string\n}\n" +
		"rule r1 {\n    match:\n        $login.user exact \"a\"\n}\n" +
		"rule r2 {\n    match:\n        $login.user exact \"b\"\n}\n"
	out := compileSource(t, src, nil)
	require.Empty(t, out.Errs.Items())
	require.Len(t, out.Program.Rules, 2)
	assert.Equal(t, "r1", out.Program.Rules[0].Name)
	assert.Equal(t, "r2", out.Program.Rules[1].Name)
}

func TestCompileRuleMissingMatchSectionErrors(t *testing.T) {
	out := compileSource(t, "rule r {\n    output:\n        1\n}\n", nil)
	assert.NotEmpty(t, out.Errs.Items())
	assert.Empty(t, out.Program.Rules)
}

func TestCompileArithmeticTypeMismatchIsDiagnosed(t *testing.T) {
	out := compileSource(t, "rule r {\n    match:\n        $e.f exact 1\n    condition:\n        \"a\" + 1 == 1\n}\n"+
		"ingress e {\n    field:\n        f long\n}\n", nil)
	assert.NotEmpty(t, out.Errs.Items())
}

func TestCompileBetweenRequiresLongField(t *testing.T) {
	src := "ingress e {\n    field:\n        f string\n}\n" +
		"rule r {\n    match:\n        $e.f exact \"x\"\n    condition:\n        $e.f between 1..2\n}\n"
	out := compileSource(t, src, nil)
	assert.NotEmpty(t, out.Errs.Items(), "between over a string field must be rejected")
}

type stubModuleLoader struct {
	scope *ModuleScope
	err   error
}

func (s stubModuleLoader) Load(name string) (*ModuleScope, error) { return s.scope, s.err }

func TestCompileImportResolvesModuleCall(t *testing.T) {
	table := nametable.New()
	table.Set("stamp", nametable.Entry{Kind: value.Func, Value: value.Of(value.Func, &FuncDef{
		Name: "stamp", ArgKinds: []string{"string"}, ReturnKind: "long",
		Fn: func(args []value.Value) (value.Value, error) { return value.NewLong(1), nil },
	})})
	loader := stubModuleLoader{scope: &ModuleScope{ModuleName: "mark", Table: table}}

	src := "import mark\n" +
		"ingress e {\n    field:\n        f string\n}\n" +
		"rule r {\n    match:\n        $e.f exact \"x\"\n    action:\n        mark.stamp(\"k\")\n}\n"
	out := compileSource(t, src, loader)
	assert.Empty(t, out.Errs.Items())
	require.Len(t, out.Program.Rules, 1)
}

func TestCompileImportWithNoLoaderErrors(t *testing.T) {
	out := compileSource(t, "import missing\n", nil)
	assert.NotEmpty(t, out.Errs.Items())
}
