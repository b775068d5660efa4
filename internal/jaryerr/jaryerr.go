// Package jaryerr implements Jary's diagnostic and error taxonomy,
// grounded on the teacher's internal/errors package (SentraError,
// ErrorType, SourceLocation) but reshaped for §7's propagation policy:
// parse and compile are non-fatal at the rule level, so diagnostics
// are *collected* into a List rather than panicking, keyed by
// (from_token, to_token, message) as §7 specifies.
package jaryerr

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic the way the teacher's ErrorType did.
type Kind string

const (
	ScanError    Kind = "ScanError"
	ParseError   Kind = "ParseError"
	CompileError Kind = "CompileError"
	RuntimeError Kind = "RuntimeError"
	ModuleError  Kind = "ModuleError"
)

// Diagnostic is one collected error, spanning a range of tokens.
type Diagnostic struct {
	Kind    Kind
	Message string
	From    int // token index
	To      int // token index
	Line    int
	Column  int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (line %d, col %d)", d.Kind, d.Message, d.Line, d.Column)
}

// List is an append-only diagnostic sink threaded through scanner,
// parser and compiler. It is never used to abort: every producer keeps
// going after appending.
type List struct {
	items []Diagnostic
}

func (l *List) Add(d Diagnostic) { l.items = append(l.items, d) }

func (l *List) Addf(kind Kind, from, to, line, col int, format string, args ...interface{}) {
	l.Add(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), From: from, To: to, Line: line, Column: col})
}

func (l *List) Items() []Diagnostic { return l.items }
func (l *List) HasErrors() bool     { return len(l.items) > 0 }
func (l *List) Len() int            { return len(l.items) }

func (l *List) Error() string {
	var b strings.Builder
	for _, d := range l.items {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Code is the host-facing taxonomy §7 requires the runtime error
// codes be mapped onto: success, generic error, OOM, compile error,
// storage error.
type Code int

const (
	CodeOK Code = iota
	CodeError
	CodeOOM
	CodeCompile
	CodeStorage
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeError:
		return "error"
	case CodeOOM:
		return "out_of_memory"
	case CodeCompile:
		return "compile_error"
	case CodeStorage:
		return "storage_error"
	}
	return "unknown"
}
