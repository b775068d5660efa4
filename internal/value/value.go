// Package value implements Jary's tagged runtime value, modeled on
// original_source/include/jary/types.h's union jy_value and the
// teacher's vm.Value (internal/vm/value.go), generalized to the
// full kind set §3 requires.
//
// The C original packs every kind into one 8-byte machine word with a
// parallel type tag array. Go has no safe bit-cast union; the idiomatic
// analogue kept here is a tagged variant (Kind + payload) rather than
// exposing any cross-variant reinterpretation as API — the payload is
// only ever read back as the kind it was written with.
package value

import "fmt"

// Kind is the runtime/compile-time type tag of a Value, mirroring
// enum jy_ktype.
type Kind int

const (
	Unknown Kind = iota
	Rule
	Ingress
	Module
	Descriptor
	Func
	Action
	Match
	Event
	Regex
	Time
	Long
	ULong
	Ofs // alias of ULong at the bit level; kept distinct for interning identity
	Str
	Bool
	Handle
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Rule:
		return "rule"
	case Ingress:
		return "ingress"
	case Module:
		return "module"
	case Descriptor:
		return "descriptor"
	case Func:
		return "func"
	case Action:
		return "action"
	case Match:
		return "match"
	case Event:
		return "event"
	case Regex:
		return "regex"
	case Time:
		return "time"
	case Long:
		return "long"
	case ULong:
		return "ulong"
	case Ofs:
		return "ofs"
	case Str:
		return "str"
	case Bool:
		return "bool"
	case Handle:
		return "handle"
	}
	return "invalid"
}

// TimeUnit is the suffix on a time-suffixed numeric literal.
type TimeUnit int

const (
	Second TimeUnit = 1
	Minute TimeUnit = 60
	Hour   TimeUnit = 3600
)

// TimeOfs mirrors struct jy_time_ofs: a signed offset count paired with
// the unit it was authored in. Seconds() folds both into one duration.
type TimeOfs struct {
	Unit   TimeUnit
	Offset int64
}

// Seconds returns the offset expressed in whole seconds.
func (t TimeOfs) Seconds() int64 { return t.Offset * int64(t.Unit) }

// Descriptor mirrors struct jy_desc: a compile-time-interned pair
// naming an event field. Identity and interning depend on bitwise
// equality of the two ids, never on pointers.
type Descriptor struct {
	ScopeID  uint32
	MemberID uint32
}

// Value is Jary's tagged variant. Exactly one of the typed accessor
// methods is meaningful for a given Kind; Raw carries whichever payload
// was stored.
type Value struct {
	Kind Kind
	Raw  interface{}
}

func Of(k Kind, raw interface{}) Value { return Value{Kind: k, Raw: raw} }

func NewLong(v int64) Value       { return Value{Kind: Long, Raw: v} }
func NewULong(v uint64) Value     { return Value{Kind: ULong, Raw: v} }
func NewOfs(v uint64) Value       { return Value{Kind: Ofs, Raw: v} }
func NewBool(v bool) Value        { return Value{Kind: Bool, Raw: v} }
func NewStr(v string) Value       { return Value{Kind: Str, Raw: v} }
func NewRegex(v string) Value     { return Value{Kind: Regex, Raw: v} }
func NewTime(v TimeOfs) Value     { return Value{Kind: Time, Raw: v} }
func NewDescriptor(d Descriptor) Value { return Value{Kind: Descriptor, Raw: d} }
func NewHandle(v interface{}) Value { return Value{Kind: Handle, Raw: v} }

func (v Value) Long() int64 { return v.Raw.(int64) }
func (v Value) ULong() uint64 {
	if v.Kind == Ofs {
		return v.Raw.(uint64)
	}
	return v.Raw.(uint64)
}
func (v Value) Bool() bool             { return v.Raw.(bool) }
func (v Value) Str() string            { return v.Raw.(string) }
func (v Value) TimeOfs() TimeOfs       { return v.Raw.(TimeOfs) }
func (v Value) Descriptor() Descriptor { return v.Raw.(Descriptor) }

// Equal reports bitwise/structural equality for the interned kinds
// (LONG, ULONG, STR, TIME, DESCRIPTOR, OFS) per §8's constant-interning
// invariant, and also for BOOL and REGEX (the VM's CMP relies on BOOL
// equality). Values of any other kind, or of different kinds, are
// never Equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Long:
		return v.Raw.(int64) == o.Raw.(int64)
	case ULong, Ofs:
		return v.ULong() == o.ULong()
	case Str, Regex:
		return v.Raw.(string) == o.Raw.(string)
	case Bool:
		return v.Raw.(bool) == o.Raw.(bool)
	case Time:
		return v.Raw.(TimeOfs) == o.Raw.(TimeOfs)
	case Descriptor:
		return v.Raw.(Descriptor) == o.Raw.(Descriptor)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case Long:
		return fmt.Sprintf("%d", v.Long())
	case ULong, Ofs:
		return fmt.Sprintf("%d", v.ULong())
	case Bool:
		return fmt.Sprintf("%t", v.Bool())
	case Str:
		return v.Str()
	case Regex:
		return "/" + v.Str() + "/"
	case Time:
		return fmt.Sprintf("%d%v", v.TimeOfs().Offset, v.TimeOfs().Unit)
	case Descriptor:
		d := v.Descriptor()
		return fmt.Sprintf("#%d.%d", d.ScopeID, d.MemberID)
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
