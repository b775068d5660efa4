package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/token"
)

func TestNewTreeHasRootAtZero(t *testing.T) {
	tr := NewTree()
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, ROOT, tr.Kinds[0])
	assert.Equal(t, -1, tr.Tokens[0])
	assert.Empty(t, tr.Children[0])
}

func TestAddChildPostOrder(t *testing.T) {
	// Expression-style construction: operands built before the parent,
	// so child index < parent index.
	tr := NewTree()
	lhs := tr.Add(LONG, 0)
	rhs := tr.Add(LONG, 1)
	add := tr.Add(ADD, 2)
	tr.AddChild(add, lhs)
	tr.AddChild(add, rhs)

	assert.Equal(t, []int{lhs, rhs}, tr.Children[add])
	assert.True(t, tr.Valid(sampleTokens(3)))
}

func TestAddChildPreOrder(t *testing.T) {
	// Declaration-style construction: parent built first, children
	// attached afterward, so child index > parent index.
	tr := NewTree()
	decl := tr.Add(INGRESS_DECL, 0)
	field1 := tr.Add(FIELD_SECT, 1)
	field2 := tr.Add(FIELD_SECT, 2)
	tr.AddChild(decl, field1)
	tr.AddChild(decl, field2)

	assert.Equal(t, []int{field1, field2}, tr.Children[decl])
	assert.True(t, tr.Valid(sampleTokens(3)))
}

func TestValidRejectsOutOfBoundsToken(t *testing.T) {
	tr := NewTree()
	tr.Add(LONG, 5) // only 1 token exists
	assert.False(t, tr.Valid(sampleTokens(1)))
}

func TestValidRejectsOutOfRangeChild(t *testing.T) {
	tr := NewTree()
	n := tr.Add(ADD, 0)
	tr.AddChild(n, 99)
	assert.False(t, tr.Valid(sampleTokens(1)))
}

func TestValidRejectsSelfReference(t *testing.T) {
	tr := NewTree()
	n := tr.Add(ADD, 0)
	tr.AddChild(n, n)
	assert.False(t, tr.Valid(sampleTokens(1)))
}

func TestTruncateDropsTail(t *testing.T) {
	tr := NewTree()
	tr.Add(LONG, 0)
	tr.Add(LONG, 1)
	mark := tr.Len()
	tr.Add(LONG, 2)
	tr.Add(LONG, 3)

	tr.Truncate(mark)
	assert.Equal(t, mark, tr.Len())
	assert.True(t, tr.Valid(sampleTokens(4)))
}

func TestFixedArity(t *testing.T) {
	n, ok := FixedArity(BETWEEN)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = FixedArity(NOT)
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = FixedArity(MATCH_SECT)
	assert.False(t, ok, "section bodies have variable arity")
}

func sampleTokens(n int) []token.Token {
	toks := make([]token.Token, n)
	for i := range toks {
		toks[i] = token.Token{Kind: token.NUMBER, Line: 1, Column: i}
	}
	return toks
}
