package builtinmod

import "github.com/CTRLRLTY/JARY-sub000/internal/compiler"

// builtins maps a module name to its constructor. Each import gets a
// fresh instance so state never leaks between compiles.
var builtins = map[string]func() *compiler.ModuleScope{
	"mark": New,
}

// Loader resolves the bundled modules directly and defers everything
// else to Next (typically a *module.Loader over on-disk plugins).
type Loader struct {
	Next compiler.ModuleLoader
}

func (l Loader) Load(name string) (*compiler.ModuleScope, error) {
	if ctor, ok := builtins[name]; ok {
		return ctor(), nil
	}
	if l.Next != nil {
		return l.Next.Load(name)
	}
	return nil, &UnknownModuleError{Name: name}
}

type UnknownModuleError struct{ Name string }

func (e *UnknownModuleError) Error() string { return "builtinmod: unknown module " + e.Name }
