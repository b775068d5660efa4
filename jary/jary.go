// Package jary is Jary's host façade (§6): Open/Compile/InsertEvent/
// Execute/Close, plus a rule-output callback API. It wires together
// internal/parser, internal/compiler, internal/vm, internal/store and
// the module loaders into the single conceptual API a host program
// drives, the same role the teacher's cmd/sentra package gives its
// run command over lexer/parser/compiler/vm.
package jary

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/CTRLRLTY/JARY-sub000/internal/builtinmod"
	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/include"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/module"
	"github.com/CTRLRLTY/JARY-sub000/internal/parser"
	"github.com/CTRLRLTY/JARY-sub000/internal/store"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
	"github.com/CTRLRLTY/JARY-sub000/internal/vm"
)

// Handle is one open Jary instance. Not safe for concurrent use from
// multiple goroutines (§5) — the host must serialize calls.
type Handle struct {
	dbPath    string
	moduleDir string

	store   *store.Store
	out     *compiler.Output
	machine *vm.Machine
	sink    *rowSink
	errs    *jaryerr.List
}

// Open creates a Handle backed by a SQLite database at dbPath. Modules
// referenced by `import` are resolved from moduleDir (bundled modules,
// currently just "mark", resolve first and never touch disk).
func Open(dbPath, moduleDir string) (*Handle, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "jary: open")
	}
	return &Handle{dbPath: dbPath, moduleDir: moduleDir, store: st}, nil
}

// Close releases the handle's storage. It does not unload modules:
// no loaded plugin's JaryUnload is called here or anywhere else.
func (h *Handle) Close() error {
	return h.store.Close()
}

// CompileResult reports whether compilation produced a usable program
// and carries every diagnostic collected along the way — compilation
// is non-fatal at the rule level (§7), so a nonempty Diagnostics slice
// does not necessarily mean Ok is false.
type CompileResult struct {
	Ok          bool
	Diagnostics []jaryerr.Diagnostic
}

// Compile scans, parses, and compiles source, then creates the tables
// for every declared ingress. A compile with any parse/scan error
// returns Ok=false; a compile that produces
// some rules despite scattered semantic diagnostics returns Ok=true.
// Any `include "path"` statement in source resolves relative to the
// process's working directory — use CompileFile for source read from
// disk, where includes resolve relative to the source file itself.
func (h *Handle) Compile(source string) CompileResult {
	return h.compile(source, ".")
}

// CompileFile reads path and compiles it, resolving every `include`
// statement relative to path's own directory (nested includes resolve
// relative to whichever file named them), per the driver-level file
// splicing described in SPEC_FULL.md's supplemented features.
func (h *Handle) CompileFile(path string) CompileResult {
	source, err := os.ReadFile(path)
	if err != nil {
		h.errs = &jaryerr.List{}
		h.errs.Addf(jaryerr.ScanError, 0, 0, 0, 0, "jary: read %q: %v", path, err)
		return CompileResult{Ok: false, Diagnostics: h.errs.Items()}
	}
	return h.compile(string(source), filepath.Dir(path))
}

func (h *Handle) compile(source, baseDir string) CompileResult {
	toks, err := include.Resolve(source, baseDir)
	if err != nil {
		h.errs = &jaryerr.List{}
		h.errs.Addf(jaryerr.ScanError, 0, 0, 0, 0, "%v", err)
		return CompileResult{Ok: false, Diagnostics: h.errs.Items()}
	}
	presult := parser.Parse(toks)

	loader := builtinmod.Loader{Next: module.NewLoader(h.moduleDir)}
	out := compiler.Compile(presult.Tree, presult.Tokens, loader)

	allErrs := append(append([]jaryerr.Diagnostic{}, presult.Errs.Items()...), out.Errs.Items()...)
	h.errs = &jaryerr.List{}
	for _, d := range allErrs {
		h.errs.Add(d)
	}

	if !presult.Tree.Valid(presult.Tokens) {
		return CompileResult{Ok: false, Diagnostics: allErrs}
	}

	if err := h.store.CreateTables(out.EventScopes); err != nil {
		h.errs.Addf(jaryerr.RuntimeError, 0, 0, 0, 0, "%v", err)
		return CompileResult{Ok: false, Diagnostics: h.errs.Items()}
	}

	h.out = &out
	h.sink = &rowSink{}
	h.machine = vm.NewMachine(h.out, h.store, h.sink)

	return CompileResult{Ok: len(out.Program.Rules) > 0 && !presult.Errs.HasErrors(), Diagnostics: h.errs.Items()}
}

// InsertEvent records one event under ingress eventName, and seeds the
// machine's live field cache for it so LOAD reads prior to any QUERY
// see the freshest insert, per §6's insert_event.
func (h *Handle) InsertEvent(eventName string, keys []string, values []value.Value) error {
	if h.out == nil {
		return errors.New("jary: InsertEvent before a successful Compile")
	}
	if err := h.store.InsertEvent(eventName, keys, values); err != nil {
		return err
	}
	for poolID, scope := range h.out.EventScopes {
		if scope.IngressName != eventName {
			continue
		}
		for i, k := range keys {
			for midx, fname := range scope.FieldOrder {
				if fname == k {
					h.machine.SetEventField(uint32(poolID), uint32(midx), values[i])
				}
			}
		}
	}
	return nil
}

// OutputCallback receives one rule's emitted output row. invocationID
// is shared by every row emitted during the same Execute call's run of
// ruleName, letting a host correlate rows across one match-query pass
// without threading its own bookkeeping through OUTPUT statements.
type OutputCallback func(ruleName, invocationID string, row OutputView)

// OutputView is the indexed accessor a rule-output callback reads
// from, per §6 ("str_at(i)/long_at(i)").
type OutputView struct{ values []value.Value }

func (v OutputView) Len() int           { return len(v.values) }
func (v OutputView) StrAt(i int) string { return v.values[i].Str() }
func (v OutputView) LongAt(i int) int64 { return v.values[i].Long() }
func (v OutputView) BoolAt(i int) bool  { return v.values[i].Bool() }

// KindAt reports the i'th value's runtime kind, letting a caller pick
// the right *At accessor instead of guessing (beyond §6's named API,
// but needed by any formatter — e.g. jaryd — that prints whole rows).
func (v OutputView) KindAt(i int) value.Kind { return v.values[i].Kind }

type rowSink struct {
	cb OutputCallback
}

func (s *rowSink) Emit(ruleName, invocationID string, values []value.Value) {
	if s.cb != nil {
		s.cb(ruleName, invocationID, OutputView{values: values})
	}
}

// OnOutput registers the callback every OUTPUT-emitted row is sent to
// during Execute.
func (h *Handle) OnOutput(cb OutputCallback) {
	if h.sink != nil {
		h.sink.cb = cb
	}
}

// Execute runs every compiled rule's entry chunk in source order
// (§5's ordering guarantee). Execution is fatal at the first
// non-recoverable error; the handle is inert afterward until Close.
// Every rule in this pass gets its own invocation id.
func (h *Handle) Execute() error {
	if h.out == nil {
		return errors.New("jary: Execute before a successful Compile")
	}
	for _, rule := range h.out.Program.Rules {
		if err := h.machine.ExecuteRule(rule, uuid.NewString()); err != nil {
			return errors.Wrapf(err, "jary: rule %q", rule.Name)
		}
	}
	return nil
}
