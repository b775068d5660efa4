// Package regexlang implements Jary's regex sub-language: its own
// scanner, Pratt parser, AST, and an NFA compiler (§4.6). It is
// independent of the main Jary scanner/parser. The compiler does not
// call into this package: a regex literal's body (lexed as one REGEXP
// token by internal/scanner) is interned as a string constant.
//
// Matching at VM runtime is delegated to the storage layer's SQL
// REGEXP operator rather than driven by the NFA this package compiles
// (see internal/vm's REGEXOP handling) — §9's design notes call the
// original C NFA compiler "incompletely wired" and ask a conformant
// rewrite to either finish it or document the delegation. This
// implementation finishes the compiler (Compile/Match below are fully
// functional) but keeps the VM's `regex` operator on the delegation
// path, since the storage layer already owns a regex engine (SQLite's
// REGEXP) and running two independent engines over the same pattern
// would be the actual design defect.
package regexlang

// Kind is a regex-language token kind.
type Kind int

const (
	NONE Kind = iota
	SINGLE
	ESCAPED
	LBRACKET
	RBRACKET
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	DOT
	CARET
	DOLLAR
	QMARK
	PIPE
	PLUS
	STAR
	COMMA
	EOF
)

type Token struct {
	Kind  Kind
	Lexeme byte
}
