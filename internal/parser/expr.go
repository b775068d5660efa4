package parser

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/token"
)

// precedence levels, low to high, per §4.2's table.
const (
	precNone = iota
	precOr
	precAnd
	precEquality // exact, equal, between, within, regex, ==, ~
	precComparison
	precTerm  // + - ..
	precFactor // * /
	precCall1 // join
	precCall  // . (
)

func infixPrec(k token.Kind) int {
	switch k {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EXACT, token.EQUAL, token.BETWEEN, token.WITHIN, token.REGEX, token.EQ, token.TILDE:
		return precEquality
	case token.LT, token.GT:
		return precComparison
	case token.PLUS, token.MINUS, token.CONCAT:
		return precTerm
	case token.STAR, token.SLASH:
		return precFactor
	case token.JOINX:
		return precCall1
	case token.DOT, token.LPAREN:
		return precCall
	}
	return precNone
}

// expression parses at the lowest precedence (assignment-equivalent,
// used for call arguments and section lines alike).
func (p *Parser) expression(mode accessMode) (int, bool) {
	return p.parsePrec(precOr, mode)
}

func (p *Parser) parsePrec(minPrec int, mode accessMode) (int, bool) {
	left, ok := p.prefix(mode)
	if !ok {
		return 0, false
	}

	for {
		k := p.peek().Kind
		prec := infixPrec(k)
		if prec == precNone || prec < minPrec {
			break
		}
		var node int
		node, ok = p.infix(left, mode)
		if !ok {
			return 0, false
		}
		left = node
	}
	return left, true
}

func (p *Parser) prefix(mode accessMode) (int, bool) {
	t := p.peek()
	switch t.Kind {
	case token.LPAREN:
		p.advance()
		inner, ok := p.expression(mode)
		if !ok {
			return 0, false
		}
		if _, ok := p.consume(token.RPAREN, "expected ')' after expression"); !ok {
			return 0, false
		}
		return inner, true

	case token.NOT:
		p.advance()
		idx := p.current - 1
		operand, ok := p.parsePrec(precComparison, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.NOT, idx)
		p.tree.AddChild(node, operand)
		return node, true

	case token.NUMBER:
		p.advance()
		return p.tree.Add(ast.LONG, p.current-1), true
	case token.HOUR:
		p.advance()
		return p.tree.Add(ast.HOUR, p.current-1), true
	case token.MINUTE:
		p.advance()
		return p.tree.Add(ast.MINUTE, p.current-1), true
	case token.SECOND:
		p.advance()
		return p.tree.Add(ast.SECOND, p.current-1), true
	case token.STRING:
		p.advance()
		return p.tree.Add(ast.STRING, p.current-1), true
	case token.REGEXP:
		p.advance()
		return p.tree.Add(ast.REGEXP, p.current-1), true
	case token.TRUE:
		p.advance()
		return p.tree.Add(ast.TRUE, p.current-1), true
	case token.FALSE:
		p.advance()
		return p.tree.Add(ast.FALSE, p.current-1), true

	case token.IDENTIFIER:
		p.advance()
		return p.tree.Add(ast.NAME, p.current-1), true

	case token.DOLLAR:
		p.advance()
		name, ok := p.consume(token.IDENTIFIER, "expected event name after '$'")
		if !ok {
			return 0, false
		}
		return p.tree.Add(ast.EVENT, p.tokIndexOf(name)), true

	default:
		p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column,
			"unexpected token %q in expression", t.Lexeme)
		return 0, false
	}
}

func (p *Parser) infix(left int, mode accessMode) (int, bool) {
	t := p.advance()
	idx := p.current - 1

	switch t.Kind {
	case token.DOT:
		nameTok, ok := p.consume(token.IDENTIFIER, "expected a field name after '.'")
		if !ok {
			return 0, false
		}
		member := p.tree.Add(ast.NAME, p.tokIndexOf(nameTok))
		kind := ast.EACCESS
		if mode == modeMatch || mode == modeField {
			kind = ast.QACCESS
		}
		node := p.tree.Add(kind, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, member)
		if p.check(token.LPAREN) {
			return p.call(node, mode)
		}
		return node, true

	case token.LPAREN:
		return p.call(left, mode)

	case token.AND:
		right, ok := p.parsePrec(precAnd+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.AND, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.OR:
		right, ok := p.parsePrec(precOr+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.OR, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.EQ:
		right, ok := p.parsePrec(precEquality+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.EQUALITY, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.LT:
		right, ok := p.parsePrec(precComparison+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.LESSER, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.GT:
		right, ok := p.parsePrec(precComparison+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.GREATER, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.PLUS:
		right, ok := p.parsePrec(precTerm+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.ADD, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.MINUS:
		right, ok := p.parsePrec(precTerm+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.SUB, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.CONCAT:
		right, ok := p.parsePrec(precTerm+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.CONCAT, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.STAR:
		right, ok := p.parsePrec(precFactor+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.MUL, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.SLASH:
		right, ok := p.parsePrec(precFactor+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.DIV, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.JOINX:
		right, ok := p.parsePrec(precCall1+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.JOINX, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.EXACT:
		right, ok := p.parsePrec(precEquality+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.EXACT, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.EQUAL:
		right, ok := p.parsePrec(precEquality+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.EQUAL, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.TILDE, token.REGEX:
		right, ok := p.parsePrec(precEquality+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.REGEX, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.WITHIN:
		right, ok := p.parsePrec(precEquality+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.WITHIN, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		return node, true

	case token.BETWEEN:
		lo, ok := p.parsePrec(precTerm+1, mode)
		if !ok {
			return 0, false
		}
		if _, ok := p.consume(token.CONCAT, "expected '..' between between-range bounds"); !ok {
			return 0, false
		}
		hi, ok := p.parsePrec(precTerm+1, mode)
		if !ok {
			return 0, false
		}
		node := p.tree.Add(ast.BETWEEN, idx)
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, lo)
		p.tree.AddChild(node, hi)
		return node, true
	}

	t2 := p.peek()
	p.errs.Addf(jaryerr.ParseError, p.current, p.current, t2.Line, t2.Column,
		"unexpected infix operator %q", t.Lexeme)
	return 0, false
}

// call parses `( args )`, capped at 65535 arguments per §4.2, and
// wraps callee into a variable-arity CALL node whose first child is
// the callee.
func (p *Parser) call(callee int, mode accessMode) (int, bool) {
	idx := p.current - 1
	if _, ok := p.consume(token.LPAREN, "expected '(' to start call arguments"); !ok {
		return 0, false
	}
	node := p.tree.Add(ast.CALL, idx)
	p.tree.AddChild(node, callee)

	p.skipNewlines()
	argc := 0
	if !p.check(token.RPAREN) {
		for {
			p.skipNewlines()
			arg, ok := p.expression(mode)
			if !ok {
				return 0, false
			}
			p.tree.AddChild(node, arg)
			argc++
			if argc > 65535 {
				t := p.peek()
				p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column,
					"call has too many arguments (limit 65535)")
			}
			p.skipNewlines()
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.skipNewlines()
	if _, ok := p.consume(token.RPAREN, "expected ')' to close call arguments"); !ok {
		return 0, false
	}
	return node, true
}
