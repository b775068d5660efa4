package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
	"github.com/CTRLRLTY/JARY-sub000/internal/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func loginScope() *compiler.EventScope {
	return &compiler.EventScope{
		IngressName: "login",
		FieldOrder:  []string{"__name__", "__arrival__", "user", "success"},
		FieldTypes:  []string{"TEXT", "INTEGER", "TEXT", "INTEGER"},
	}
}

func TestCreateTablesAndInsertEvent(t *testing.T) {
	s := openTestStore(t)
	scopes := map[int]*compiler.EventScope{1: loginScope()}
	require.NoError(t, s.CreateTables(scopes))

	err := s.InsertEvent("login", []string{"user", "success"}, []value.Value{
		value.NewStr("bob"), value.NewBool(true),
	})
	require.NoError(t, err)

	var count int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM "login"`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestQMatchExactJoinsWithAND(t *testing.T) {
	s := openTestStore(t)
	scopes := map[int]*compiler.EventScope{1: loginScope()}
	require.NoError(t, s.CreateTables(scopes))

	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("bob"), value.NewBool(true)}))
	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("bob"), value.NewBool(false)}))
	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("alice"), value.NewBool(true)}))

	operands := []vm.Operand{
		{Kind: vm.OpExact, Desc: value.Descriptor{ScopeID: 1, MemberID: 2}, Val: value.NewStr("bob")},
		{Kind: vm.OpExact, Desc: value.Descriptor{ScopeID: 1, MemberID: 3}, Val: value.NewBool(true)},
	}

	var matched int
	err := s.QMatch(operands, func(row vm.Row) (bool, error) {
		matched++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, matched, "both predicates must hold (AND), not just either (comma/cross-product)")
}

func TestQMatchRegexp(t *testing.T) {
	s := openTestStore(t)
	scopes := map[int]*compiler.EventScope{1: loginScope()}
	require.NoError(t, s.CreateTables(scopes))

	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("bob@example.com"), value.NewBool(true)}))
	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("not-an-email"), value.NewBool(true)}))

	operands := []vm.Operand{
		{Kind: vm.OpRegexp, Desc: value.Descriptor{ScopeID: 1, MemberID: 2}, Val: value.NewRegex(`.+@.+`)},
	}

	var users []string
	err := s.QMatch(operands, func(row vm.Row) (bool, error) {
		for i, c := range row.Columns {
			if c == "login.user" {
				users = append(users, row.Values[i].Str())
			}
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com"}, users)
}

func TestQMatchValueIsBoundNotInterpolated(t *testing.T) {
	s := openTestStore(t)
	scopes := map[int]*compiler.EventScope{1: loginScope()}
	require.NoError(t, s.CreateTables(scopes))

	maliciousUser := `' OR '1'='1`
	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr(maliciousUser), value.NewBool(true)}))
	require.NoError(t, s.InsertEvent("login", []string{"user", "success"},
		[]value.Value{value.NewStr("alice"), value.NewBool(true)}))

	operands := []vm.Operand{
		{Kind: vm.OpExact, Desc: value.Descriptor{ScopeID: 1, MemberID: 2}, Val: value.NewStr(maliciousUser)},
	}

	var matched int
	err := s.QMatch(operands, func(row vm.Row) (bool, error) {
		matched++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, matched, "a value containing SQL syntax must still be treated as a literal, not widen the match")
}

func TestQMatchNoOperandsIsNoop(t *testing.T) {
	s := openTestStore(t)
	called := false
	err := s.QMatch(nil, func(row vm.Row) (bool, error) {
		called = true
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
