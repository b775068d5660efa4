package vm

import (
	"fmt"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
)

// dispatchCall implements CALL n: pop n args, pop the callee pushed
// ahead of them, invoke its native function, and push the result if
// the signature is non-void (§4.4).
func (m *Machine) dispatchCall(f *frame, argc int) error {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	callee := f.pop()

	def, ok := callee.Raw.(*compiler.FuncDef)
	if !ok || def == nil {
		return fmt.Errorf("vm: CALL target is not a function")
	}
	if def.Fn == nil {
		return fmt.Errorf("vm: function %q has no native implementation bound", def.Name)
	}

	result, err := def.Fn(args)
	if err != nil {
		return fmt.Errorf("vm: call to %q aborted: %w", def.Name, err)
	}
	if def.ReturnKind != "" {
		f.push(result)
	}
	return nil
}
