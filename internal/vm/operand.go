package vm

import "github.com/CTRLRLTY/JARY-sub000/internal/value"

// OperandKind tags a deferred SQL match operand, built on the operand
// stack by EQUAL/JOIN/REGEXOP/BETWEEN/WITHIN and consumed by QUERY's
// call into the storage layer (§4.5's q_match contract).
type OperandKind int

const (
	OpExact OperandKind = iota
	OpJoin
	OpRegexp
	OpBetween
	OpWithin
)

// Operand is one deferred match predicate. Exactly the fields its Kind
// needs are populated; the rest are zero.
type Operand struct {
	Kind  OperandKind
	Desc  value.Descriptor
	Desc2 value.Descriptor // OpJoin's right-hand descriptor
	Val   value.Value      // OpExact/OpRegexp/OpWithin's right-hand value
	Lo    value.Value      // OpBetween's lower bound
	Hi    value.Value      // OpBetween's upper bound
}
