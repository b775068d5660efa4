package compiler

import "github.com/CTRLRLTY/JARY-sub000/internal/value"

// internable reports whether k is one of the kinds §4.3 requires tag-and-byte-equal
// deduplication for. EVENT and MODULE constants are never deduped —
// each ingress/import owns exactly one scope table — and REGEX/BOOL
// constants are cheap enough that reuse isn't worth the scan.
func internable(k value.Kind) bool {
	switch k {
	case value.Long, value.ULong, value.Ofs, value.Str, value.Time, value.Descriptor:
		return true
	}
	return false
}

// Pool is the compiled constant pool: an append-only slice of runtime
// values, deduplicated for the interned kinds per §4.3.
type Pool struct {
	Values []value.Value
}

// Intern returns v's id in the pool, reusing an existing tag-and-byte-
// equal entry for the interned kinds.
func (p *Pool) Intern(v value.Value) int {
	if internable(v.Kind) {
		for i, existing := range p.Values {
			if existing.Equal(v) {
				return i
			}
		}
	}
	id := len(p.Values)
	p.Values = append(p.Values, v)
	return id
}

// Get returns the value stored at id.
func (p *Pool) Get(id int) value.Value { return p.Values[id] }
