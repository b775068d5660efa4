// Package parser implements Jary's Pratt parser with synchronizing
// error recovery (§4.2), producing the struct-of-arrays AST (package
// ast) plus a diagnostic list. Grounded on the control-flow shape of
// the teacher's internal/parser.Parser (token cursor, match/check/
// consume/advance helpers) and on original_source/lib/jay/parser.c's
// three synchronizers (synclist/syncsection/syncdecl), which the
// distilled spec.md names but the teacher never implements (the
// teacher's parser panics on error instead — see stmt.go's consume).
package parser

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/ast"
	"github.com/CTRLRLTY/JARY-sub000/internal/jaryerr"
	"github.com/CTRLRLTY/JARY-sub000/internal/token"
)

// Result is a parsed source unit: the AST, the token stream it
// indexes into, and whatever diagnostics accumulated along the way.
type Result struct {
	Tree   *ast.Tree
	Tokens []token.Token
	Errs   *jaryerr.List
}

type Parser struct {
	toks    []token.Token
	current int
	tree    *ast.Tree
	errs    *jaryerr.List
}

// Parse scans source (via the pre-tokenized stream) into an AST.
// Whitespace/comment tokens are filtered before parsing so the grammar
// never has to special-case them, the way the teacher's scanner folds
// SPACES/COMMENT handling into next() rather than the parser.
func Parse(toks []token.Token) Result {
	filtered := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case token.SPACES, token.COMMENT:
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Kind != token.EOF {
		filtered = append(filtered, token.Token{Kind: token.EOF})
	}

	p := &Parser{toks: filtered, tree: ast.NewTree(), errs: &jaryerr.List{}}
	p.skipNewlines()
	for !p.isAtEnd() {
		p.declaration()
		p.skipNewlines()
	}
	return Result{Tree: p.tree, Tokens: p.toks, Errs: p.errs}
}

// --- token cursor helpers ---

func (p *Parser) peek() token.Token  { return p.toks[p.current] }
func (p *Parser) previous() token.Token {
	if p.current == 0 {
		return p.toks[0]
	}
	return p.toks[p.current-1]
}
func (p *Parser) isAtEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(k token.Kind) bool {
	if p.isAtEnd() {
		return k == token.EOF
	}
	return p.peek().Kind == k
}

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(k token.Kind, msg string) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	t := p.peek()
	p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column, "%s (got %q)", msg, t.Lexeme)
	return t, false
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

// isDeclarator reports whether k starts a top-level declaration.
func isDeclarator(k token.Kind) bool {
	switch k {
	case token.IMPORT, token.INCLUDE, token.INGRESS, token.RULE:
		return true
	}
	return false
}

// isSectionHeader reports whether k starts a rule/ingress section.
func isSectionHeader(k token.Kind) bool {
	switch k {
	case token.INPUT, token.MATCH, token.CONDITION, token.OUTPUT, token.JUMP, token.FIELD:
		return true
	}
	return false
}

// syncList skips to newline / '}' / section header / declarator / EOF,
// matching original_source's synclist.
func (p *Parser) syncList() {
	for {
		k := p.peek().Kind
		if isDeclarator(k) || isSectionHeader(k) || k == token.RBRACE || k == token.NEWLINE || k == token.EOF {
			return
		}
		p.advance()
	}
}

// syncSection skips to '}' / section header / declarator / EOF.
func (p *Parser) syncSection() {
	for {
		k := p.peek().Kind
		if isDeclarator(k) || isSectionHeader(k) || k == token.RBRACE || k == token.EOF {
			return
		}
		p.advance()
	}
}

// syncDecl skips to the next declarator or EOF.
func (p *Parser) syncDecl() {
	for {
		k := p.peek().Kind
		if isDeclarator(k) || k == token.EOF {
			return
		}
		p.advance()
	}
}

// --- declarations ---

func (p *Parser) declaration() {
	switch {
	case p.match(token.IMPORT):
		p.importStmt()
	case p.match(token.INCLUDE):
		p.includeStmt()
	case p.match(token.INGRESS):
		p.ingressDecl()
	case p.match(token.RULE):
		p.ruleDecl()
	default:
		t := p.peek()
		p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column,
			"expected a declaration, got %q", t.Lexeme)
		p.syncDecl()
	}
}

func (p *Parser) importStmt() {
	save := p.tree.Len()
	node := p.tree.Add(ast.IMPORT_STMT, p.current-1)
	if name, ok := p.consume(token.IDENTIFIER, "expected module name after 'import'"); ok {
		p.tree.AddChild(node, p.tree.Add(ast.NAME, p.tokIndexOf(name)))
	} else {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	p.tree.AddChild(0, node)
}

func (p *Parser) includeStmt() {
	save := p.tree.Len()
	node := p.tree.Add(ast.INCLUDE_STMT, p.current-1)
	if path, ok := p.consume(token.STRING, "expected a file path string after 'include'"); ok {
		p.tree.AddChild(node, p.tree.Add(ast.STRING, p.tokIndexOf(path)))
	} else {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	p.tree.AddChild(0, node)
}

// tokIndexOf finds the index of tok within the current token slice by
// reusing p.current-1 when it matches; falls back to a linear scan,
// since advance() already moved past it.
func (p *Parser) tokIndexOf(tok token.Token) int {
	if p.current-1 >= 0 && p.toks[p.current-1] == tok {
		return p.current - 1
	}
	for i := p.current - 1; i >= 0; i-- {
		if p.toks[i] == tok {
			return i
		}
	}
	return p.current - 1
}

func (p *Parser) ingressDecl() {
	save := p.tree.Len()
	nameTok, ok := p.consume(token.IDENTIFIER, "expected ingress name")
	if !ok {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	node := p.tree.Add(ast.INGRESS_DECL, p.tokIndexOf(nameTok))

	if _, ok := p.consume(token.LBRACE, "expected '{' after ingress name"); !ok {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	p.skipNewlines()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if sect, ok := p.section(modeField); ok {
			p.tree.AddChild(node, sect)
		}
		p.skipNewlines()
	}
	p.consume(token.RBRACE, "expected '}' to close ingress declaration")
	p.tree.AddChild(0, node)
}

func (p *Parser) ruleDecl() {
	save := p.tree.Len()
	nameTok, ok := p.consume(token.IDENTIFIER, "expected rule name")
	if !ok {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	node := p.tree.Add(ast.RULE_DECL, p.tokIndexOf(nameTok))

	if _, ok := p.consume(token.LBRACE, "expected '{' after rule name"); !ok {
		p.tree.Truncate(save)
		p.syncDecl()
		return
	}
	p.skipNewlines()
	count := 0
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		mode := modeMatch
		switch p.peek().Kind {
		case token.CONDITION, token.OUTPUT, token.JUMP:
			mode = modeEval
		}
		if sect, ok := p.section(mode); ok {
			p.tree.AddChild(node, sect)
			count++
			if count >= 255 {
				t := p.peek()
				p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column,
					"rule has too many sections (limit 255)")
			}
		}
		p.skipNewlines()
	}
	p.consume(token.RBRACE, "expected '}' to close rule declaration")
	p.tree.AddChild(0, node)
}

// accessMode controls whether a trailing dot-access parses as a
// QACCESS (match-mode) or EACCESS (evaluation-mode) node, per §4.2's
// "polymorphic access node" rule.
type accessMode int

const (
	modeMatch accessMode = iota
	modeEval
	modeField
)

// section parses one `name : NEWLINE (line NEWLINE)*` block.
func (p *Parser) section(mode accessMode) (int, bool) {
	hdr := p.peek()
	var kind ast.Kind
	switch hdr.Kind {
	case token.INPUT:
		kind = ast.INPUT_SECT
	case token.MATCH:
		kind = ast.MATCH_SECT
	case token.CONDITION:
		kind = ast.CONDITION_SECT
	case token.OUTPUT:
		kind = ast.OUTPUT_SECT
	case token.JUMP:
		kind = ast.JUMP_SECT
	case token.FIELD:
		kind = ast.FIELD_SECT
	default:
		p.errs.Addf(jaryerr.ParseError, p.current, p.current, hdr.Line, hdr.Column,
			"expected a section header, got %q", hdr.Lexeme)
		p.syncSection()
		return 0, false
	}
	p.advance()
	save := p.tree.Len()
	node := p.tree.Add(kind, p.current-1)

	if _, ok := p.consume(token.COLON, "expected ':' after section name"); !ok {
		p.tree.Truncate(save)
		p.syncSection()
		return 0, false
	}
	p.skipNewlines()

	for !p.isAtEnd() && !isSectionHeader(p.peek().Kind) && !isDeclarator(p.peek().Kind) && p.peek().Kind != token.RBRACE {
		before := p.tree.Len()
		if kind == ast.FIELD_SECT {
			if child, ok := p.fieldLine(); ok {
				p.tree.AddChild(node, child)
			} else {
				p.tree.Truncate(before)
				p.syncList()
			}
		} else {
			if child, ok := p.exprLine(mode); ok {
				p.tree.AddChild(node, child)
			} else {
				p.tree.Truncate(before)
				p.syncList()
			}
		}
		p.skipNewlines()
	}
	return node, true
}

func (p *Parser) fieldLine() (int, bool) {
	nameTok, ok := p.consume(token.IDENTIFIER, "expected field name")
	if !ok {
		return 0, false
	}
	nameNode := p.tree.Add(ast.NAME, p.tokIndexOf(nameTok))

	var typeKind ast.Kind
	switch p.peek().Kind {
	case token.LONGTYPE:
		typeKind = ast.LONG_TYPE
	case token.STRINGTYPE:
		typeKind = ast.STR_TYPE
	case token.BOOLTYPE:
		typeKind = ast.BOOL_TYPE
	default:
		t := p.peek()
		p.errs.Addf(jaryerr.ParseError, p.current, p.current, t.Line, t.Column,
			"expected a field type (long, string, bool)")
		return 0, false
	}
	typeTok := p.advance()
	typeNode := p.tree.Add(typeKind, p.tokIndexOf(typeTok))
	p.tree.AddChild(nameNode, typeNode)
	return nameNode, true
}

func (p *Parser) exprLine(mode accessMode) (int, bool) {
	return p.expression(mode)
}
