package compiler

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// compileIngress emits an event name table seeded with the two
// implicit fields `__name__`/`__arrival__` (original_source's
// `_ingress_decl` adds `__arrival__` the same way), interns it as an
// EVENT constant, and registers the ingress identifier in module
// scope, per §4.3's "Ingress emission".
func (c *compiler) compileIngress(node int) {
	nameTok := c.tok(node)
	name := nameTok.Lexeme

	scope := &EventScope{IngressName: name, Table: nametable.New()}
	scope.Table.Set("__name__", nametable.Entry{Kind: value.Str, Value: value.NewULong(memberName)})
	scope.FieldOrder = append(scope.FieldOrder, "__name__")
	scope.FieldTypes = append(scope.FieldTypes, "TEXT")
	scope.Table.Set("__arrival__", nametable.Entry{Kind: value.Long, Value: value.NewULong(memberArrival)})
	scope.FieldOrder = append(scope.FieldOrder, "__arrival__")
	scope.FieldTypes = append(scope.FieldTypes, "INTEGER")

	memberID := uint64(firstUserField)
	for _, sect := range c.tree.Children[node] {
		if c.tree.Kinds[sect] != ast.FIELD_SECT {
			c.errAt(sect, jaryerr.CompileError, "ingress %q: only a 'field' section is valid here", name)
			continue
		}
		for _, field := range c.tree.Children[sect] {
			fieldTok := c.tok(field)
			fname := fieldTok.Lexeme
			typeNode := c.tree.Children[field][0]
			var kind value.Kind
			var sqlType string
			switch c.tree.Kinds[typeNode] {
			case ast.LONG_TYPE:
				kind, sqlType = value.Long, "INTEGER"
			case ast.STR_TYPE:
				kind, sqlType = value.Str, "TEXT"
			case ast.BOOL_TYPE:
				kind, sqlType = value.Bool, "INTEGER"
			}
			if !scope.Table.Set(fname, nametable.Entry{Kind: kind, Value: value.NewULong(memberID)}) {
				c.errAt(field, jaryerr.CompileError, "ingress %q: duplicate field %q", name, fname)
				continue
			}
			scope.FieldOrder = append(scope.FieldOrder, fname)
			scope.FieldTypes = append(scope.FieldTypes, sqlType)
			memberID++
		}
	}

	poolID := c.pool.Intern(value.Of(value.Event, scope))
	c.eventScopes[poolID] = scope

	if !c.root.Set(name, nametable.Entry{Kind: value.Event, Value: value.NewULong(uint64(poolID))}) {
		c.errAt(node, jaryerr.CompileError, "duplicate definition of %q", name)
	}
}
