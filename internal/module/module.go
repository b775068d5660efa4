// Package module implements Jary's module ABI (§6) over Go's stdlib
// plugin package — the idiomatic replacement spec.md §1 sanctions for
// the original's POSIX dlopen/dlsym pair. A module is a .so built with
// `go build -buildmode=plugin` exporting two symbols mirroring
// module_load/module_unload: `JaryLoad() []module.FuncExport` and,
// optionally, `JaryUnload()`.
package module

import (
	"plugin"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// FuncExport is what a plugin's JaryLoad returns per registered
// function: the def_func(ctx, name, return_kind, arg_kinds[], func_ptr)
// contract flattened into a single struct, since Go plugins can export
// data as easily as functions.
type FuncExport struct {
	Name       string
	ArgKinds   []string
	ReturnKind string
	Fn         func(args []value.Value) (value.Value, error)
}

// Loader loads Jary modules from .so files in a module directory,
// implementing compiler.ModuleLoader.
type Loader struct {
	Dir     string
	plugins map[string]*plugin.Plugin
}

func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir, plugins: map[string]*plugin.Plugin{}}
}

// Load resolves name to "<dir>/<name>.so", opens it, calls JaryLoad,
// and assembles a ModuleScope name table from the exported functions.
// If "<dir>/<name>.yaml" exists, every exported function must match a
// declared signature in it — a host-side check the original dlopen/dlsym
// ABI had no room for, since it trusted every def_func call unconditionally.
func (l *Loader) Load(name string) (*compiler.ModuleScope, error) {
	path := name
	manifestPath := name + ".yaml"
	if l.Dir != "" {
		path = l.Dir + "/" + name + ".so"
		manifestPath = l.Dir + "/" + name + ".yaml"
	}

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "module %q: manifest", name)
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "module: open %q", path)
	}
	l.plugins[name] = p

	loadSym, err := p.Lookup("JaryLoad")
	if err != nil {
		return nil, errors.Wrapf(err, "module %q: missing JaryLoad", name)
	}
	loadFn, ok := loadSym.(func() []FuncExport)
	if !ok {
		return nil, errors.Errorf("module %q: JaryLoad has the wrong signature", name)
	}

	table := nametable.New()
	for _, fn := range loadFn() {
		if manifest != nil {
			if err := manifest.check(fn); err != nil {
				return nil, errors.Wrapf(err, "module %q", name)
			}
		}
		def := &compiler.FuncDef{Name: fn.Name, ArgKinds: fn.ArgKinds, ReturnKind: fn.ReturnKind, Fn: fn.Fn}
		if !table.Set(fn.Name, nametable.Entry{Kind: value.Func, Value: value.Of(value.Func, def)}) {
			return nil, errors.Errorf("module %q: duplicate function %q", name, fn.Name)
		}
	}

	return &compiler.ModuleScope{ModuleName: name, InstanceID: uuid.NewString(), Table: table}, nil
}

// Unload calls every loaded plugin's optional JaryUnload symbol, the
// counterpart to module_unload. Plugins opened via Go's plugin package
// cannot be unmapped; this only runs cleanup code, matching §5's
// "module unload is deferred until program destruction."
func (l *Loader) Unload() error {
	var first error
	for name, p := range l.plugins {
		sym, err := p.Lookup("JaryUnload")
		if err != nil {
			continue // unload is optional
		}
		fn, ok := sym.(func())
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil && first == nil {
					first = errors.Errorf("module %q: panic during unload: %v", name, r)
				}
			}()
			fn()
		}()
	}
	return first
}
