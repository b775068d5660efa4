package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/scanner"
)

func mustParse(t *testing.T, src string) Result {
	t.Helper()
	res := Parse(scanner.ScanAll(src))
	require.True(t, res.Tree.Valid(res.Tokens), "tree must satisfy the token/child bounds invariant")
	return res
}

func TestParseIngressWithFieldSection(t *testing.T) {
	res := mustParse(t, "ingress login {\n    field:\n        user string\n        success bool\n}\n")
	require.Empty(t, res.Errs.Items())

	root := res.Tree.Children[0]
	require.Len(t, root, 1)
	decl := root[0]
	assert.Equal(t, ast.INGRESS_DECL, res.Tree.Kinds[decl])

	sections := res.Tree.Children[decl]
	require.Len(t, sections, 1)
	assert.Equal(t, ast.FIELD_SECT, res.Tree.Kinds[sections[0]])

	fields := res.Tree.Children[sections[0]]
	require.Len(t, fields, 2)
	assert.Equal(t, ast.NAME, res.Tree.Kinds[fields[0]])
	userType := res.Tree.Children[fields[0]]
	require.Len(t, userType, 1)
	assert.Equal(t, ast.STR_TYPE, res.Tree.Kinds[userType[0]])

	successType := res.Tree.Children[fields[1]]
	require.Len(t, successType, 1)
	assert.Equal(t, ast.BOOL_TYPE, res.Tree.Kinds[successType[0]])
}

func TestParseRuleWithMatchAndOutput(t *testing.T) {
	src := "rule suspicious_login {\n    match:\n        $login.user exact \"bob\"\n    output:\n        $login.user\n}\n"
	res := mustParse(t, src)
	require.Empty(t, res.Errs.Items())

	decl := res.Tree.Children[0][0]
	assert.Equal(t, ast.RULE_DECL, res.Tree.Kinds[decl])

	sections := res.Tree.Children[decl]
	require.Len(t, sections, 2)
	assert.Equal(t, ast.MATCH_SECT, res.Tree.Kinds[sections[0]])
	assert.Equal(t, ast.OUTPUT_SECT, res.Tree.Kinds[sections[1]])

	matchLines := res.Tree.Children[sections[0]]
	require.Len(t, matchLines, 1)
	exactNode := matchLines[0]
	assert.Equal(t, ast.EXACT, res.Tree.Kinds[exactNode])

	exactChildren := res.Tree.Children[exactNode]
	require.Len(t, exactChildren, 2)
	access := exactChildren[0]
	assert.Equal(t, ast.QACCESS, res.Tree.Kinds[access], "match-section dot access must lower to QACCESS, not EACCESS")
	assert.Equal(t, ast.STRING, res.Tree.Kinds[exactChildren[1]])

	outputLines := res.Tree.Children[sections[1]]
	require.Len(t, outputLines, 1)
	assert.Equal(t, ast.EACCESS, res.Tree.Kinds[outputLines[0]], "output-section dot access must lower to EACCESS")
}

func TestParseMissingBraceRecordsDiagnostic(t *testing.T) {
	res := Parse(scanner.ScanAll("rule broken "))
	assert.NotEmpty(t, res.Errs.Items())
}

func TestParseUnknownTopLevelTokenSyncsToNextDeclaration(t *testing.T) {
	res := Parse(scanner.ScanAll("@@@ garbage\nrule ok {\n    match:\n        $e.f exact 1\n}\n"))
	require.NotEmpty(t, res.Errs.Items())

	var sawRule bool
	for _, k := range res.Tree.Kinds {
		if k == ast.RULE_DECL {
			sawRule = true
		}
	}
	assert.True(t, sawRule, "parser must recover and still parse the rule after bad top-level input")
}

func TestParseBetweenRequiresConcatSeparator(t *testing.T) {
	res := mustParse(t, "rule r {\n    condition:\n        1 between 2..3\n}\n")
	require.Empty(t, res.Errs.Items())
}
