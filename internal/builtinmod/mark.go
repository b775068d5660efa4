// Package builtinmod bundles Jary's "mark" module directly into the
// binary, rather than requiring a separately built plugin for such
// common bookkeeping. Grounded on original_source's bundled mark
// module (lib/modules/mark.c): mark(key)/unmark(key)/count(key)
// over a name -> count table.
//
// The original keeps that table in a single process-wide global,
// which makes two jary instances sharing one process corrupt each
// other's marks. Per SPEC_FULL.md's supplemented-features note, this
// implementation instead gives each loaded instance of the module its
// own state, closed over by the functions returned from New — the
// idiomatic fix once the ABI is "a Go closure" rather than "a C
// function pointer plus a global".
package builtinmod

import (
	"sync"

	"github.com/google/uuid"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// markState is one module instance's mark table.
type markState struct {
	mu     sync.Mutex
	counts map[string]int64
}

// New builds a fresh "mark" module scope with its own isolated state.
func New() *compiler.ModuleScope {
	st := &markState{counts: map[string]int64{}}
	table := nametable.New()

	table.Set("mark", nametable.Entry{Kind: value.Func, Value: value.Of(value.Func, &compiler.FuncDef{
		Name:       "mark",
		ArgKinds:   []string{"string"},
		ReturnKind: "long",
		Fn:         st.mark,
	})})
	table.Set("unmark", nametable.Entry{Kind: value.Func, Value: value.Of(value.Func, &compiler.FuncDef{
		Name:       "unmark",
		ArgKinds:   []string{"string"},
		ReturnKind: "long",
		Fn:         st.unmark,
	})})
	table.Set("count", nametable.Entry{Kind: value.Func, Value: value.Of(value.Func, &compiler.FuncDef{
		Name:       "count",
		ArgKinds:   []string{"string"},
		ReturnKind: "long",
		Fn:         st.count,
	})})

	return &compiler.ModuleScope{ModuleName: "mark", InstanceID: uuid.NewString(), Table: table}
}

func (s *markState) mark(args []value.Value) (value.Value, error) {
	key := argKey(args)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return value.NewLong(s.counts[key]), nil
}

func (s *markState) unmark(args []value.Value) (value.Value, error) {
	key := argKey(args)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[key] > 0 {
		s.counts[key]--
	}
	return value.NewLong(s.counts[key]), nil
}

func (s *markState) count(args []value.Value) (value.Value, error) {
	key := argKey(args)
	s.mu.Lock()
	defer s.mu.Unlock()
	return value.NewLong(s.counts[key]), nil
}

func argKey(args []value.Value) string {
	if len(args) == 0 {
		return ""
	}
	return args[0].Str()
}
