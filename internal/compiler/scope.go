package compiler

import (
	"github.com/CTRLRLTY/JARY-sub000/internal/nametable"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// EventScope is an ingress's event name table plus its fields in
// declaration order (needed for CREATE TABLE emission and for the
// __arrival__ WITHIN shortcut). __name__ and __arrival__ occupy member
// ids 0 and 1; user fields follow in the order written.
type EventScope struct {
	IngressName string
	Table       *nametable.Table
	FieldOrder  []string
	FieldTypes  []string // "TEXT" | "INTEGER", parallel to FieldOrder
}

const (
	memberName     = 0
	memberArrival  = 1
	firstUserField = 2
)

// ModuleScope is an imported module's exported function table.
// InstanceID identifies this particular loaded instance (a fresh
// uuid per Load/New call), used to correlate diagnostics across two
// jary handles that both import the same module name.
type ModuleScope struct {
	ModuleName string
	InstanceID string
	Table      *nametable.Table
}

// FuncDef is the compile-time signature bound to a module function
// name, mirroring module_load's def_func contract (§6). Fn carries
// the actual callable, the idiomatic replacement for dlsym'd function
// pointers — a Go closure over the module's loaded plugin symbol, or
// over a builtin's Go function directly (internal/builtinmod).
type FuncDef struct {
	Name       string
	ArgKinds   []string // symbolic kind names, checked loosely (no generics in the ABI)
	ReturnKind string
	Fn         func(args []value.Value) (value.Value, error)
}
