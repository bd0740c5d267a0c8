package vm

import (
	"io"

	"bci/internal/code"
	"bci/internal/fault"
	"bci/internal/heap"
	"bci/internal/limits"

	"github.com/tliron/commonlog"
)

type VM struct {
	ins code.Instructions
	ip  int

	heap *heap.Heap

	out   io.Writer
	trace io.Writer

	stackSize int
	policy    heap.Policy
	capacity  int
	maxValues int
	maxSteps  int64
	steps     int64

	budget *limits.Budget
	log    commonlog.Logger
}

func New(ins []byte) *VM {
	return &VM{
		ins:       code.Instructions(ins),
		out:       io.Discard,
		stackSize: heap.DefaultStackSize,
		capacity:  heap.DefaultCapacity,
		log:       commonlog.GetLogger("bci.vm"),
	}
}

// SetOutput sets where the result line of the outermost RET is written.
func (m *VM) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.out = w
}

// SetTrace enables the per-instruction debug trace. Nil disables it.
func (m *VM) SetTrace(w io.Writer) {
	m.trace = w
}

func (m *VM) SetStackSize(n int) {
	if n <= 0 {
		n = heap.DefaultStackSize
	}
	m.stackSize = n
}

func (m *VM) SetPolicy(p heap.Policy) {
	m.policy = p
}

func (m *VM) SetCapacity(n int) {
	if n <= 0 {
		n = heap.DefaultCapacity
	}
	m.capacity = n
}

func (m *VM) SetMaxValues(max int) {
	if max < 0 {
		max = 0
	}
	m.maxValues = max
}

func (m *VM) SetMaxSteps(max int64) {
	if max < 0 {
		max = 0
	}
	m.maxSteps = max
}

func (m *VM) SetLogger(log commonlog.Logger) {
	if log != nil {
		m.log = log
	}
}

// Steps is the number of instructions the last Run executed.
func (m *VM) Steps() int64 {
	return m.steps
}

func (m *VM) Policy() heap.Policy {
	return m.policy
}

// Heap is the heap of the last Run. It is torn down once Run returns.
func (m *VM) Heap() *heap.Heap {
	return m.heap
}

// Run executes the program from offset 0 until the outermost activation
// returns or a fault stops it. The heap is destroyed on both paths.
func (m *VM) Run() (*Result, error) {
	m.newHeap()
	m.ip = 0
	m.steps = 0
	m.log.Debugf("run: %d bytes, gc policy %s", len(m.ins), m.policy)

	res, err := m.run()
	if err != nil {
		m.log.Debugf("run: stopped at %d after %d steps: %s", m.ip, m.steps, err)
		if res == nil {
			m.teardown()
		}
		return res, err
	}
	return res, nil
}

func (m *VM) run() (*Result, error) {
	act, err := m.heap.NewActivation(heap.Nil, heap.Nil, heap.NoReturn)
	if err != nil {
		return nil, err
	}
	if err := m.heap.SetCurrent(act); err != nil {
		return nil, err
	}

	for {
		if m.ip < 0 || m.ip >= len(m.ins) {
			return nil, fault.Decodef("", "instruction pointer out of range: %d", m.ip)
		}
		start := m.ip
		op := code.Opcode(m.ins[start])
		def, ok := code.Lookup(op)
		if !ok {
			return nil, fault.Decodef("", "ip=%d: invalid opcode: %d", start, byte(op))
		}
		operands, read, err := code.ReadOperands(def, m.ins[start+1:])
		if err != nil {
			return nil, fault.Decodef(def.Name, "ip=%d: %s", start, err)
		}

		if m.maxSteps > 0 && m.steps >= m.maxSteps {
			return nil, fault.New(fault.Limit, def.Name, "max instruction count exceeded (%d)", m.maxSteps)
		}
		m.steps++

		if m.trace != nil {
			m.traceInstruction(start, def, operands)
		}
		m.ip = start + 1 + read

		switch op {
		case code.OpPushTrue:
			m.heap.Push(m.heap.True())

		case code.OpPushFalse:
			m.heap.Push(m.heap.False())

		case code.OpPushInt:
			if _, err := m.heap.NewInt(operands[0]); err != nil {
				return nil, err
			}

		case code.OpPushVar:
			scope, err := m.scope(int(operands[0]))
			if err != nil {
				return nil, err
			}
			v, err := m.heap.Local(scope, int(operands[1]))
			if err != nil {
				return nil, err
			}
			m.heap.Push(v)

		case code.OpPushClosure:
			if _, err := m.heap.NewClosure(m.heap.Current(), operands[0]); err != nil {
				return nil, err
			}

		case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv:
			if err := m.arith(def.Name, op); err != nil {
				return nil, err
			}

		case code.OpEq:
			a, b, err := m.popInts(def.Name)
			if err != nil {
				return nil, err
			}
			m.heap.Push(m.heap.Bool(a == b))

		case code.OpJmp:
			m.ip = int(operands[0])

		case code.OpJmpTrue:
			ref, err := m.heap.Pop()
			if err != nil {
				return nil, err
			}
			v, ok := m.heap.Get(ref)
			if !ok || v.Kind != heap.KindBool {
				return nil, fault.Typef(def.Name, "not a bool: %s", m.heap.Format(ref))
			}
			if v.Bool {
				m.ip = int(operands[0])
			}

		case code.OpSwapCall:
			if err := m.call(); err != nil {
				return nil, err
			}

		case code.OpEnter:
			if err := m.heap.AllocLocals(m.heap.Current(), int(operands[0])); err != nil {
				return nil, err
			}

		case code.OpRet:
			cur, _ := m.heap.Get(m.heap.Current())
			if cur.Activation.Parent == heap.Nil {
				return m.finish()
			}
			m.ip = int(cur.Activation.ReturnIP)
			if err := m.heap.SetCurrent(cur.Activation.Parent); err != nil {
				return nil, err
			}

		case code.OpStoreVar:
			v, err := m.heap.Pop()
			if err != nil {
				return nil, err
			}
			if err := m.heap.SetLocal(m.heap.Current(), int(operands[0]), v); err != nil {
				return nil, err
			}

		default:
			return nil, fault.Decodef(def.Name, "ip=%d: unsupported instruction: %s (%d)", start, def.Name, byte(op))
		}
	}
}

func (m *VM) popInts(op string) (int32, int32, error) {
	bRef, err := m.heap.Pop()
	if err != nil {
		return 0, 0, err
	}
	aRef, err := m.heap.Pop()
	if err != nil {
		return 0, 0, err
	}
	a, okA := m.heap.Get(aRef)
	b, okB := m.heap.Get(bRef)
	if !okA || !okB || a.Kind != heap.KindInt || b.Kind != heap.KindInt {
		return 0, 0, fault.Typef(op, "not an int")
	}
	return a.Int, b.Int, nil
}

// arith pops b then a and pushes a op b. Overflow wraps at 32 bits.
func (m *VM) arith(name string, op code.Opcode) error {
	a, b, err := m.popInts(name)
	if err != nil {
		return err
	}

	var r int32
	switch op {
	case code.OpAdd:
		r = a + b
	case code.OpSub:
		r = a - b
	case code.OpMul:
		r = a * b
	case code.OpDiv:
		if b == 0 {
			return fault.New(fault.Arith, name, "division by zero")
		}
		r = a / b
	}
	_, err = m.heap.NewInt(r)
	return err
}
