package compiler

import (
	"strconv"

	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/bytecode"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// exprResult is what compiling one expression node yields: the
// apparent stack/flag kind, and — for a QACCESS result specifically —
// the underlying event field's real kind, since "exact"/"equal"/
// "between"/"regex" type-check against the field, not the descriptor.
type exprResult struct {
	Kind  value.Kind
	Field value.Kind
}

func plain(k value.Kind) exprResult { return exprResult{Kind: k, Field: k} }

// compileExpr walks one expression node per §4.3's type-inference
// table, emitting into buf, and returns its result kind.
func (c *compiler) compileExpr(buf bytecode.Buffer, node int) (exprResult, bool) {
	switch c.tree.Kinds[node] {

	case ast.LONG:
		n, err := strconv.ParseInt(c.tok(node).Lexeme, 10, 64)
		if err != nil {
			c.errAt(node, jaryerr.CompileError, "invalid integer literal %q", c.tok(node).Lexeme)
			return exprResult{}, false
		}
		return plain(c.internLiteral(buf, value.NewLong(n))), true

	case ast.STRING:
		lex := c.tok(node).Lexeme
		s := unquote(lex)
		return plain(c.internLiteral(buf, value.NewStr(s))), true

	case ast.REGEXP:
		lex := c.tok(node).Lexeme
		s := unquote(lex)
		return plain(c.internLiteral(buf, value.NewRegex(s))), true

	case ast.TRUE:
		return plain(c.internLiteral(buf, value.NewBool(true))), true
	case ast.FALSE:
		return plain(c.internLiteral(buf, value.NewBool(false))), true

	case ast.HOUR:
		return c.compileTimeLit(buf, node, value.Hour)
	case ast.MINUTE:
		return c.compileTimeLit(buf, node, value.Minute)
	case ast.SECOND:
		return c.compileTimeLit(buf, node, value.Second)

	case ast.QACCESS:
		return c.compileAccess(buf, node, false)
	case ast.EACCESS:
		return c.compileAccess(buf, node, true)

	case ast.NOT:
		operand, ok := c.compileExpr(buf, c.tree.Children[node][0])
		if !ok {
			return exprResult{}, false
		}
		if operand.Kind != value.Bool {
			c.errAt(node, jaryerr.CompileError, "type mismatch: 'not' expects bool")
		}
		c.program.WriteOp(buf, bytecode.NOT)
		return plain(value.Bool), true

	case ast.AND:
		return c.compileShortCircuit(buf, node, bytecode.JMPF)
	case ast.OR:
		return c.compileShortCircuit(buf, node, bytecode.JMPT)

	case ast.ADD, ast.SUB, ast.MUL, ast.DIV:
		return c.compileArith(buf, node)

	case ast.CONCAT:
		return c.compileConcat(buf, node)

	case ast.EQUALITY:
		return c.compileEquality(buf, node)

	case ast.LESSER:
		return c.compileCompare(buf, node, bytecode.LT)
	case ast.GREATER:
		return c.compileCompare(buf, node, bytecode.GT)

	case ast.EXACT, ast.EQUAL:
		return c.compileMatchBinary(buf, node, bytecode.EQUAL)
	case ast.REGEX:
		return c.compileMatchBinary(buf, node, bytecode.REGEXOP)

	case ast.JOINX:
		return c.compileJoin(buf, node)
	case ast.WITHIN:
		return c.compileWithin(buf, node)
	case ast.BETWEEN:
		return c.compileBetween(buf, node)

	case ast.CALL:
		return c.compileCall(buf, node)

	default:
		c.errAt(node, jaryerr.CompileError, "unsupported expression")
		return exprResult{}, false
	}
}

func unquote(lex string) string {
	if len(lex) >= 2 {
		return lex[1 : len(lex)-1]
	}
	return lex
}

func (c *compiler) compileTimeLit(buf bytecode.Buffer, node int, unit value.TimeUnit) (exprResult, bool) {
	lex := c.tok(node).Lexeme
	digits := lex[:len(lex)-1]
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		c.errAt(node, jaryerr.CompileError, "invalid time literal %q", lex)
		return exprResult{}, false
	}
	return plain(c.internLiteral(buf, value.NewTime(value.TimeOfs{Unit: unit, Offset: n}))), true
}

// resolveScopeName looks up a bare NAME/EVENT node in module scope,
// returning the scope's kind (Event or Module) and its pool id.
func (c *compiler) resolveScopeName(node int) (value.Kind, int, bool) {
	switch c.tree.Kinds[node] {
	case ast.NAME, ast.EVENT:
	default:
		c.errAt(node, jaryerr.CompileError, "invalid access target")
		return value.Unknown, 0, false
	}
	name := c.tok(node).Lexeme
	entry, ok := c.root.Get(name)
	if !ok {
		c.errAt(node, jaryerr.CompileError, "undefined name %q", name)
		return value.Unknown, 0, false
	}
	return entry.Kind, int(entry.Value.ULong()), true
}

// compileAccess resolves `lhs.rhs`: lhs must name an ingress already
// bound in module scope, rhs an identifier in that ingress's event
// scope. QACCESS leaves the descriptor constant on the stack; EACCESS
// additionally emits LOAD to materialize the field value, per §4.3.
func (c *compiler) compileAccess(buf bytecode.Buffer, node int, load bool) (exprResult, bool) {
	children := c.tree.Children[node]
	baseKind, poolID, ok := c.resolveScopeName(children[0])
	if !ok {
		return exprResult{}, false
	}
	if baseKind != value.Event {
		c.errAt(node, jaryerr.CompileError, "left side of '.' is not an event")
		return exprResult{}, false
	}
	scope, ok := c.eventScopes[poolID]
	if !ok {
		c.errAt(node, jaryerr.CompileError, "internal: missing event scope")
		return exprResult{}, false
	}
	memberTok := c.tok(children[1])
	fieldEntry, ok := scope.Table.Get(memberTok.Lexeme)
	if !ok {
		c.errAt(node, jaryerr.CompileError, "ingress %q has no field %q", scope.IngressName, memberTok.Lexeme)
		return exprResult{}, false
	}
	desc := value.Descriptor{ScopeID: uint32(poolID), MemberID: uint32(fieldEntry.Value.ULong())}
	id := c.pool.Intern(value.Of(value.Descriptor, desc))
	c.pushConst(buf, id)

	if load {
		c.program.WriteOp(buf, bytecode.LOAD)
		return exprResult{Kind: fieldEntry.Kind, Field: fieldEntry.Kind}, true
	}
	return exprResult{Kind: value.Descriptor, Field: fieldEntry.Kind}, true
}

// compileShortCircuit implements `and`/`or`'s shared shape: compile
// lhs, conditionally jump past rhs, compile rhs, patch the jump to
// land just after it. Both operands' results live in flag-bit-8, so
// no stack traffic crosses the jump.
func (c *compiler) compileShortCircuit(buf bytecode.Buffer, node int, op bytecode.Op) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Bool {
		c.errAt(node, jaryerr.CompileError, "type mismatch: boolean operand expected")
	}
	c.program.WriteOp(buf, op)
	patchPos := c.program.WriteI16Placeholder(buf)

	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if rhs.Kind != value.Bool {
		c.errAt(node, jaryerr.CompileError, "type mismatch: boolean operand expected")
	}

	delta := c.program.Offset(buf) - (patchPos + 2)
	if !c.program.PatchI16(buf, patchPos, delta) {
		c.errAt(node, jaryerr.CompileError, "jump target out of range (±32767)")
	}
	return plain(value.Bool), true
}

func (c *compiler) compileArith(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Long || rhs.Kind != value.Long {
		c.errAt(node, jaryerr.CompileError, "type mismatch: arithmetic expects long operands")
	}
	var op bytecode.Op
	switch c.tree.Kinds[node] {
	case ast.ADD:
		op = bytecode.ADD
	case ast.SUB:
		op = bytecode.SUB
	case ast.MUL:
		op = bytecode.MUL
	case ast.DIV:
		op = bytecode.DIV
	}
	c.program.WriteOp(buf, op)
	return plain(value.Long), true
}

func (c *compiler) compileConcat(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Str || rhs.Kind != value.Str {
		c.errAt(node, jaryerr.CompileError, "type mismatch: '..' expects string operands")
	}
	c.program.WriteOp(buf, bytecode.CONCAT)
	return plain(value.Str), true
}

func (c *compiler) compileCompare(buf bytecode.Buffer, node int, op bytecode.Op) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Long || rhs.Kind != value.Long {
		c.errAt(node, jaryerr.CompileError, "type mismatch: comparison expects long operands")
	}
	c.program.WriteOp(buf, op)
	return plain(value.Bool), true
}

func (c *compiler) compileEquality(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	switch {
	case lhs.Kind == value.Str && rhs.Kind == value.Str:
		c.program.WriteOp(buf, bytecode.CMPSTR)
	case (lhs.Kind == value.Long || lhs.Kind == value.Bool) && lhs.Kind == rhs.Kind:
		c.program.WriteOp(buf, bytecode.CMP)
	default:
		c.errAt(node, jaryerr.CompileError, "type mismatch: '==' operands must match (long, bool, or string)")
		c.program.WriteOp(buf, bytecode.CMP)
	}
	return plain(value.Bool), true
}

// compileMatchBinary handles `exact`/`equal` (both lower to bytecode's
// single EQUAL op) and `regex`: lhs must be a QACCESS descriptor over
// a STR or LONG field, rhs the value/pattern to match against.
func (c *compiler) compileMatchBinary(buf bytecode.Buffer, node int, op bytecode.Op) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Descriptor {
		c.errAt(node, jaryerr.CompileError, "left side must be an event field reference")
	} else if lhs.Field != value.Str && lhs.Field != value.Long {
		c.errAt(node, jaryerr.CompileError, "type mismatch: field must be string or long")
	}
	_, ok = c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	c.program.WriteOp(buf, op)
	return plain(value.Match), true
}

func (c *compiler) compileJoin(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Descriptor || rhs.Kind != value.Descriptor {
		c.errAt(node, jaryerr.CompileError, "'join' expects two event field references")
	} else if lhs.Field != rhs.Field {
		c.errAt(node, jaryerr.CompileError, "type mismatch: 'join' fields must be the same kind")
	}
	c.program.WriteOp(buf, bytecode.JOIN)
	return plain(value.Match), true
}

// compileWithin special-cases its left operand: rather than a general
// QACCESS, it synthesizes a descriptor for the ingress's own
// __arrival__ field directly, per §4.4's "WITHIN ... column=__arrival__".
func (c *compiler) compileWithin(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	baseKind, poolID, ok := c.resolveScopeName(children[0])
	if !ok {
		return exprResult{}, false
	}
	if baseKind != value.Event {
		c.errAt(node, jaryerr.CompileError, "'within' expects an event on the left")
		return exprResult{}, false
	}
	desc := value.Descriptor{ScopeID: uint32(poolID), MemberID: memberArrival}
	id := c.pool.Intern(value.Of(value.Descriptor, desc))
	c.pushConst(buf, id)

	rhs, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	if rhs.Kind != value.Time {
		c.errAt(node, jaryerr.CompileError, "type mismatch: 'within' expects a time literal on the right")
	}
	c.program.WriteOp(buf, bytecode.WITHIN)
	return plain(value.Match), true
}

func (c *compiler) compileBetween(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	lhs, ok := c.compileExpr(buf, children[0])
	if !ok {
		return exprResult{}, false
	}
	if lhs.Kind != value.Descriptor {
		c.errAt(node, jaryerr.CompileError, "left side of 'between' must be an event field reference")
	} else if lhs.Field != value.Long {
		c.errAt(node, jaryerr.CompileError, "type mismatch: 'between' expects a long field")
	}
	lo, ok := c.compileExpr(buf, children[1])
	if !ok {
		return exprResult{}, false
	}
	hi, ok := c.compileExpr(buf, children[2])
	if !ok {
		return exprResult{}, false
	}
	if lo.Kind != value.Long || hi.Kind != value.Long {
		c.errAt(node, jaryerr.CompileError, "type mismatch: 'between' bounds must be long")
	}
	c.program.WriteOp(buf, bytecode.BETWEEN)
	return plain(value.Match), true
}

// compileCall resolves a module-function invocation. The callee is
// either a bare NAME (a function registered directly in module scope)
// or a QACCESS/EACCESS node naming `module.function`.
func (c *compiler) compileCall(buf bytecode.Buffer, node int) (exprResult, bool) {
	children := c.tree.Children[node]
	callee := children[0]
	args := children[1:]

	var def *FuncDef
	var calleeVal value.Value
	switch c.tree.Kinds[callee] {
	case ast.NAME:
		name := c.tok(callee).Lexeme
		entry, ok := c.root.Get(name)
		if !ok || entry.Kind != value.Func {
			c.errAt(callee, jaryerr.CompileError, "undefined function %q", name)
			return exprResult{}, false
		}
		calleeVal = entry.Value
		if fd, ok := entry.Value.Raw.(*FuncDef); ok {
			def = fd
		}
	case ast.QACCESS, ast.EACCESS:
		calleeChildren := c.tree.Children[callee]
		baseKind, poolID, ok := c.resolveScopeName(calleeChildren[0])
		if !ok {
			return exprResult{}, false
		}
		if baseKind != value.Module {
			c.errAt(callee, jaryerr.CompileError, "left side of call is not a module")
			return exprResult{}, false
		}
		mod := c.moduleScopes[poolID]
		fnTok := c.tok(calleeChildren[1])
		entry, ok := mod.Table.Get(fnTok.Lexeme)
		if !ok || entry.Kind != value.Func {
			c.errAt(callee, jaryerr.CompileError, "module %q has no function %q", mod.ModuleName, fnTok.Lexeme)
			return exprResult{}, false
		}
		calleeVal = entry.Value
		if fd, ok := entry.Value.Raw.(*FuncDef); ok {
			def = fd
		}
	default:
		c.errAt(callee, jaryerr.CompileError, "invalid call target")
		return exprResult{}, false
	}

	// push the callee first, then its arguments, so CALL's "pop n
	// args, pop callee" order reads them off the stack correctly.
	calleeID := c.pool.Intern(value.Of(value.Func, calleeVal.Raw))
	c.pushConst(buf, calleeID)

	for _, a := range args {
		if _, ok := c.compileExpr(buf, a); !ok {
			return exprResult{}, false
		}
	}
	if len(args) > 255 {
		c.errAt(node, jaryerr.CompileError, "call has too many arguments for CALL's 1-byte argc (limit 255)")
	}
	c.program.WriteOp(buf, bytecode.CALL)
	c.program.WriteByte(buf, byte(len(args)))

	retKind := value.Long
	if def != nil {
		switch def.ReturnKind {
		case "string":
			retKind = value.Str
		case "bool":
			retKind = value.Bool
		}
	}
	return plain(retKind), true
}
