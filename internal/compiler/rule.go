package compiler

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/bytecode"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// compileRule implements §4.3's four-step "Rule emission": bucket
// sections, compile the filter chunk (conditions, then outputs, then
// actions), intern the filter offset, then compile the entry chunk's
// match-query sequence.
func (c *compiler) compileRule(node int) {
	name := c.tok(node).Lexeme

	var matchSect, condSect, outputSect, actionSect = -1, -1, -1, -1
	for _, sect := range c.tree.Children[node] {
		switch c.tree.Kinds[sect] {
		case ast.MATCH_SECT:
			if matchSect != -1 {
				c.errAt(sect, jaryerr.CompileError, "rule %q: more than one 'match' section", name)
				continue
			}
			matchSect = sect
		case ast.CONDITION_SECT:
			if condSect != -1 {
				c.errAt(sect, jaryerr.CompileError, "rule %q: more than one 'condition' section", name)
				continue
			}
			condSect = sect
		case ast.OUTPUT_SECT:
			if outputSect != -1 {
				c.errAt(sect, jaryerr.CompileError, "rule %q: more than one 'output' section", name)
				continue
			}
			outputSect = sect
		case ast.JUMP_SECT:
			if actionSect != -1 {
				c.errAt(sect, jaryerr.CompileError, "rule %q: more than one 'action' section", name)
				continue
			}
			actionSect = sect
		default:
			c.errAt(sect, jaryerr.CompileError, "rule %q: invalid section for a rule declaration", name)
		}
	}

	if matchSect == -1 {
		c.errAt(node, jaryerr.CompileError, "rule %q: missing required 'match' section", name)
		return
	}

	// Step 2: filter chunk.
	filterStart := c.program.Offset(bytecode.FilterBuf)
	var jmpfPatches []int

	if condSect != -1 {
		for _, line := range c.tree.Children[condSect] {
			res, ok := c.compileExpr(bytecode.FilterBuf, line)
			if !ok {
				continue
			}
			if res.Kind != value.Bool {
				c.errAt(line, jaryerr.CompileError, "rule %q: condition must be boolean", name)
			}
			c.program.WriteOp(bytecode.FilterBuf, bytecode.JMPF)
			jmpfPatches = append(jmpfPatches, c.program.WriteI16Placeholder(bytecode.FilterBuf))
		}
	}

	if outputSect != -1 {
		count := 0
		for _, line := range c.tree.Children[outputSect] {
			if _, ok := c.compileExpr(bytecode.FilterBuf, line); ok {
				count++
			}
		}
		id := c.pool.Intern(value.NewLong(int64(count)))
		c.pushConst(bytecode.FilterBuf, id)
		c.program.WriteOp(bytecode.FilterBuf, bytecode.OUTPUT)
	}

	if actionSect != -1 {
		for _, line := range c.tree.Children[actionSect] {
			if res, ok := c.compileExpr(bytecode.FilterBuf, line); ok {
				if res.Kind != value.Match && res.Kind != value.Long && res.Kind != value.Bool && res.Kind != value.Str {
					c.errAt(line, jaryerr.CompileError, "rule %q: invalid action expression", name)
				}
			}
		}
	}

	c.program.WriteOp(bytecode.FilterBuf, bytecode.END)
	landing := c.program.Offset(bytecode.FilterBuf)
	for _, pos := range jmpfPatches {
		if !c.program.PatchI16(bytecode.FilterBuf, pos, landing-(pos+2)) {
			c.errAt(condSect, jaryerr.CompileError, "rule %q: jump target out of range (±32767)", name)
		}
	}

	// Step 3: intern the filter chunk's start offset.
	ofskid := c.pool.Intern(value.NewOfs(uint64(filterStart)))

	// Step 4: entry chunk — match-query sequence.
	entryOffset := c.program.Offset(bytecode.EntryBuf)
	qlen := 0
	for _, line := range c.tree.Children[matchSect] {
		res, ok := c.compileExpr(bytecode.EntryBuf, line)
		if !ok {
			continue
		}
		if res.Kind != value.Match {
			c.errAt(line, jaryerr.CompileError, "rule %q: match operand must be a match expression", name)
			continue
		}
		qlen++
	}
	qlenID := c.pool.Intern(value.NewLong(int64(qlen)))
	c.pushConst(bytecode.EntryBuf, qlenID)
	c.pushConst(bytecode.EntryBuf, ofskid)
	c.program.WriteOp(bytecode.EntryBuf, bytecode.QUERY)
	c.program.WriteOp(bytecode.EntryBuf, bytecode.END)

	c.program.Rules = append(c.program.Rules, bytecode.RuleMeta{Name: name, EntryOffset: entryOffset})
	if !c.root.Set(name, nametable.Entry{Kind: value.Rule, Value: value.NewULong(uint64(len(c.program.Rules) - 1))}) {
		c.errAt(node, jaryerr.CompileError, "duplicate definition of %q", name)
	}
}
