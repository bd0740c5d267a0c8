package vm

import (
	"bci/internal/fault"
	"bci/internal/heap"
)

// scope walks depth hops up the lexical chain of the current activation:
// each hop follows the activation's closure to the environment it captured.
func (m *VM) scope(depth int) (heap.Ref, error) {
	ref := m.heap.Current()
	for hops := depth; hops > 0; hops-- {
		a, ok := m.heap.Get(ref)
		if !ok || a.Kind != heap.KindActivation {
			return heap.Nil, fault.Typef("PUSH_VAR", "intermediate not an activation record: %d", hops)
		}
		c, ok := m.heap.Get(a.Activation.Closure)
		if !ok || c.Kind != heap.KindClosure {
			return heap.Nil, fault.Typef("PUSH_VAR", "activation has no closure: %d", hops)
		}
		ref = c.Closure.Env
	}
	if v, ok := m.heap.Get(ref); !ok || v.Kind != heap.KindActivation {
		return heap.Nil, fault.Typef("PUSH_VAR", "not an activation record: depth %d", depth)
	}
	return ref, nil
}

// call implements SWAP_CALL. The caller leaves [..., closure, arg] on the
// stack; the callee starts with [..., arg] and the new activation current.
func (m *VM) call() error {
	target, err := m.heap.Peek(1)
	if err != nil {
		return fault.Boundsf("SWAP_CALL", "stack is too small")
	}
	if v, ok := m.heap.Get(target); !ok || v.Kind != heap.KindClosure {
		return fault.Typef("SWAP_CALL", "not a closure: %s", m.heap.Format(target))
	}

	act, err := m.heap.NewActivation(m.heap.Current(), target, int32(m.ip))
	if err != nil {
		return err
	}

	// the allocation pushed act: [..., closure, arg, act]
	closure, _ := m.heap.Peek(2)
	c, _ := m.heap.Get(closure)
	m.ip = int(c.Closure.IP)
	if err := m.heap.SetCurrent(act); err != nil {
		return err
	}
	arg, _ := m.heap.Peek(1)
	if err := m.heap.Set(2, arg); err != nil {
		return err
	}
	return m.heap.PopN(2)
}
