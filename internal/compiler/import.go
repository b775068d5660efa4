package compiler

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// compileImport invokes the module loader to populate a function name
// table, interns it as a MODULE constant, and registers the module
// identifier in module scope, per §4.3's "Import emission". Loaded
// modules are never unloaded; the host façade's Close does not unload them.
func (c *compiler) compileImport(node int) {
	nameNode := c.tree.Children[node][0]
	name := c.tok(nameNode).Lexeme

	if c.loader == nil {
		c.errAt(node, jaryerr.ModuleError, "no module loader configured: cannot import %q", name)
		return
	}

	scope, err := c.loader.Load(name)
	if err != nil {
		c.errAt(node, jaryerr.ModuleError, "failed to load module %q: %v", name, err)
		return
	}

	poolID := c.pool.Intern(value.Of(value.Module, scope))
	c.moduleScopes[poolID] = scope

	if !c.root.Set(name, nametable.Entry{Kind: value.Module, Value: value.NewULong(uint64(poolID))}) {
		c.errAt(node, jaryerr.CompileError, "duplicate definition of %q", name)
	}
}
