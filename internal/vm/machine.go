// Package vm implements Jary's stack VM (§4.5): a step dispatch over
// the compiled entry/filter bytecode, an operand stack of tagged
// values, and a side flag-bit-8 register for booleans. Grounded on
// the teacher's internal/vm.VM dispatch-loop shape (switch over
// opcode, a flat value stack) generalized to Jary's two-chunk,
// QUERY-suspends-into-storage execution model.
package vm

import (
	"fmt"

	"github.com/CTRLRLTY/JARY-sub000/internal/bytecode"
	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// Machine is one compiled program's runtime state. A Machine is not
// safe for concurrent use (§5's single-threaded resource model); the
// host must serialize calls to Execute.
type Machine struct {
	out   *compiler.Output
	store Store

	// events holds the currently bound row, keyed by event ScopeID
	// (== the ingress's pool id). QUERY's row callback mutates it in
	// place before running the filter chunk, matching q_match's
	// "mutates the corresponding event field" contract.
	events map[uint32]*eventRow

	output OutputSink
}

// eventRow is one ingress's live field values, indexed by member id.
type eventRow struct {
	values []value.Value
}

// OutputSink receives rows emitted by OUTPUT, one call per rule-level
// output statement execution (the "output row buffer" of §4.5).
// invocationID correlates every row emitted during one ExecuteRule call
// (one rule, one ingress-table scan triggered by a host Execute), letting
// a host distinguish rows from two separate Execute passes over the
// same rule.
type OutputSink interface {
	Emit(ruleName, invocationID string, values []value.Value)
}

func NewMachine(out *compiler.Output, store Store, sink OutputSink) *Machine {
	m := &Machine{out: out, store: store, output: sink, events: map[uint32]*eventRow{}}
	for scopeID, scope := range out.EventScopes {
		m.events[uint32(scopeID)] = &eventRow{values: make([]value.Value, len(scope.FieldOrder))}
	}
	return m
}

// SetEventField seeds an ingress's field before Execute, used by the
// host façade's InsertEvent path when an ingress table has no prior
// row bound yet (fields read via LOAD before any QUERY outside a row
// callback read this seed rather than a storage row).
func (m *Machine) SetEventField(scopeID uint32, memberID uint32, v value.Value) {
	row, ok := m.events[scopeID]
	if !ok {
		return
	}
	if int(memberID) >= len(row.values) {
		grown := make([]value.Value, memberID+1)
		copy(grown, row.values)
		row.values = grown
	}
	row.values[memberID] = v
}

// frame is one chunk execution's local state: its own operand stack
// and flag register. Entry and filter chunks each run in their own
// frame, nested for the duration of a QUERY's row callback.
type frame struct {
	code  []byte
	pc    int
	stack []value.Value
	flag  bool
}

func (f *frame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() value.Value {
	n := len(f.stack)
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

// ExecuteRule runs one rule's entry chunk starting at its recorded
// offset, per §4.5's "step dispatch on *pc" execution model.
// invocationID tags every row this run emits (see OutputSink).
func (m *Machine) ExecuteRule(meta bytecode.RuleMeta, invocationID string) error {
	f := &frame{code: m.out.Program.Entry, pc: meta.EntryOffset}
	return m.run(f, meta.Name, invocationID, bytecode.EntryBuf)
}

// run steps f until it hits END, dispatching each opcode. ruleName
// and which buffer is executing are needed for QUERY (to invoke the
// other buffer) and OUTPUT (to label emitted rows).
func (m *Machine) run(f *frame, ruleName, invocationID string, buf bytecode.Buffer) error {
	for {
		if f.pc >= len(f.code) {
			return nil
		}
		op := bytecode.ReadOp(f.code, f.pc)
		f.pc++

		switch op {
		case bytecode.END:
			return nil

		case bytecode.PUSH8:
			id := int(bytecode.ReadByte(f.code, f.pc))
			f.pc++
			f.push(m.out.Pool.Get(id))

		case bytecode.PUSH16:
			id := int(bytecode.ReadU16(f.code, f.pc))
			f.pc += 2
			f.push(m.out.Pool.Get(id))

		case bytecode.SETBF8:
			v := f.pop()
			f.flag = v.Kind == value.Bool && v.Bool()

		case bytecode.LOAD:
			d := f.pop().Descriptor()
			row := m.events[d.ScopeID]
			if row == nil || int(d.MemberID) >= len(row.values) {
				return fmt.Errorf("vm: LOAD out of range descriptor %+v", d)
			}
			f.push(row.values[d.MemberID])

		case bytecode.CALL:
			argc := int(bytecode.ReadByte(f.code, f.pc))
			f.pc++
			if err := m.dispatchCall(f, argc); err != nil {
				return err
			}

		case bytecode.JMPF:
			delta := int(bytecode.ReadI16(f.code, f.pc))
			f.pc += 2
			if !f.flag {
				f.pc += delta
			}

		case bytecode.JMPT:
			delta := int(bytecode.ReadI16(f.code, f.pc))
			f.pc += 2
			if f.flag {
				f.pc += delta
			}

		case bytecode.NOT:
			f.flag = !f.flag

		case bytecode.CMP:
			rhs, lhs := f.pop(), f.pop()
			f.flag = lhs.Equal(rhs)

		case bytecode.CMPSTR:
			rhs, lhs := f.pop(), f.pop()
			f.flag = lhs.Str() == rhs.Str()

		case bytecode.LT:
			rhs, lhs := f.pop(), f.pop()
			f.flag = lhs.Long() < rhs.Long()

		case bytecode.GT:
			rhs, lhs := f.pop(), f.pop()
			f.flag = lhs.Long() > rhs.Long()

		case bytecode.ADD:
			rhs, lhs := f.pop(), f.pop()
			f.push(value.NewLong(lhs.Long() + rhs.Long()))

		case bytecode.SUB:
			rhs, lhs := f.pop(), f.pop()
			f.push(value.NewLong(lhs.Long() - rhs.Long()))

		case bytecode.MUL:
			rhs, lhs := f.pop(), f.pop()
			f.push(value.NewLong(lhs.Long() * rhs.Long()))

		case bytecode.DIV:
			rhs, lhs := f.pop(), f.pop()
			if rhs.Long() == 0 {
				return fmt.Errorf("vm: division by zero")
			}
			f.push(value.NewLong(lhs.Long() / rhs.Long()))

		case bytecode.CONCAT:
			rhs, lhs := f.pop(), f.pop()
			f.push(value.NewStr(lhs.Str() + rhs.Str()))

		case bytecode.EQUAL:
			rhs := f.pop()
			desc := f.pop().Descriptor()
			f.push(value.NewHandle(&Operand{Kind: OpExact, Desc: desc, Val: rhs}))

		case bytecode.JOIN:
			rhs := f.pop().Descriptor()
			lhs := f.pop().Descriptor()
			f.push(value.NewHandle(&Operand{Kind: OpJoin, Desc: lhs, Desc2: rhs}))

		case bytecode.REGEXOP:
			pattern := f.pop()
			desc := f.pop().Descriptor()
			f.push(value.NewHandle(&Operand{Kind: OpRegexp, Desc: desc, Val: pattern}))

		case bytecode.BETWEEN:
			hi := f.pop()
			lo := f.pop()
			desc := f.pop().Descriptor()
			f.push(value.NewHandle(&Operand{Kind: OpBetween, Desc: desc, Lo: lo, Hi: hi}))

		case bytecode.WITHIN:
			ofs := f.pop()
			desc := f.pop().Descriptor()
			f.push(value.NewHandle(&Operand{Kind: OpWithin, Desc: desc, Val: ofs}))

		case bytecode.QUERY:
			ofsVal := f.pop()
			qlen := int(f.pop().Long())
			operands := make([]Operand, qlen)
			for i := qlen - 1; i >= 0; i-- {
				h := f.pop()
				operands[i] = *(h.Raw.(*Operand))
			}
			if err := m.runQuery(operands, int(ofsVal.ULong()), ruleName, invocationID); err != nil {
				return err
			}

		case bytecode.OUTPUT:
			n := int(f.pop().Long())
			vals := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				vals[i] = f.pop()
			}
			if m.output != nil {
				m.output.Emit(ruleName, invocationID, vals)
			}

		default:
			return fmt.Errorf("vm: unknown opcode %v", op)
		}
	}
}

// runQuery drives q_match for one rule's match-query operands, then
// runs the filter chunk once per matched row in a nested frame.
func (m *Machine) runQuery(operands []Operand, filterOfs int, ruleName, invocationID string) error {
	if m.store == nil {
		return fmt.Errorf("vm: no store configured")
	}
	return m.store.QMatch(operands, func(row Row) (bool, error) {
		m.bindRow(row)
		ff := &frame{code: m.out.Program.Filter, pc: filterOfs}
		if err := m.run(ff, ruleName, invocationID, bytecode.FilterBuf); err != nil {
			return true, err
		}
		return false, nil
	})
}

// bindRow parses "table.column" column names back to (scopeID,
// memberID) and mutates the live event row in place, per §4.5's
// q_match contract.
func (m *Machine) bindRow(row Row) {
	for i, col := range row.Columns {
		table, member := splitColumn(col)
		for scopeID, scope := range m.out.EventScopes {
			if scope.IngressName != table {
				continue
			}
			for midx, fname := range scope.FieldOrder {
				if fname == member {
					v := row.Values[i]
					// The store returns INTEGER columns as Long; restore a
					// bool field's declared kind.
					if scope.Table != nil && v.Kind == value.Long {
						if e, ok := scope.Table.Get(fname); ok && e.Kind == value.Bool {
							v = value.NewBool(v.Long() != 0)
						}
					}
					m.SetEventField(uint32(scopeID), uint32(midx), v)
				}
			}
		}
	}
}

func splitColumn(col string) (table, column string) {
	for i := 0; i < len(col); i++ {
		if col[i] == '.' {
			return col[:i], col[i+1:]
		}
	}
	return "", col
}
