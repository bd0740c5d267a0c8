package heap

import (
	"bci/internal/fault"
	"bci/internal/limits"

	"github.com/tliron/commonlog"
)

const (
	DefaultStackSize = 256
	DefaultCapacity  = 256
)

type Options struct {
	StackSize int
	Policy    Policy
	Capacity  int // watermark for PolicyWatermark
	Budget    *limits.Budget
	Logger    commonlog.Logger
}

type Stats struct {
	Allocations int // values constructed, canonical booleans included
	Collections int
	Released    int
	PeakSize    int
}

// Heap holds every value of one running program: the slot arena, the
// allocation list swept by the collector, the operand stack, and the current
// activation. The operand stack and the current activation are the roots.
type Heap struct {
	slots   []slot
	free    []Ref
	objects []Ref

	color    Color
	size     int
	capacity int
	policy   Policy

	stack []Ref
	sp    int

	current Ref

	trueRef  Ref
	falseRef Ref

	allocated int
	stats     Stats
	budget    *limits.Budget
	log       commonlog.Logger
}

func New(opts Options) *Heap {
	stackSize := opts.StackSize
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("bci.gc")
	}

	h := &Heap{
		slots:    make([]slot, 1, 64),
		color:    White,
		capacity: capacity,
		policy:   opts.Policy,
		stack:    make([]Ref, stackSize),
		budget:   opts.Budget,
		log:      log,
	}
	h.trueRef = h.alloc(Value{Kind: KindBool, Bool: true})
	h.falseRef = h.alloc(Value{Kind: KindBool, Bool: false})
	// The canonical booleans count against the budget but never fail it.
	_ = h.budget.Charge(2)
	return h
}

// True and False are the canonical booleans. They stay live until Destroy.
func (h *Heap) True() Ref  { return h.trueRef }
func (h *Heap) False() Ref { return h.falseRef }

func (h *Heap) Bool(b bool) Ref {
	if b {
		return h.trueRef
	}
	return h.falseRef
}

func (h *Heap) Current() Ref { return h.current }

// SetCurrent installs ref as the current activation. Nil clears it.
func (h *Heap) SetCurrent(ref Ref) error {
	if ref != Nil {
		if v, ok := h.get(ref); !ok || v.Kind != KindActivation {
			return fault.Typef("", "current activation is not an activation: %s", h.Format(ref))
		}
	}
	h.current = ref
	return nil
}

// Push never fails: a full stack doubles and the new slots start as Nil.
func (h *Heap) Push(ref Ref) {
	if h.sp == len(h.stack) {
		size := len(h.stack) * 2
		if size == 0 {
			size = 8
		}
		grown := make([]Ref, size)
		copy(grown, h.stack)
		h.stack = grown
	}
	h.stack[h.sp] = ref
	h.sp++
}

func (h *Heap) Pop() (Ref, error) {
	if h.sp == 0 {
		return Nil, fault.Boundsf("pop", "stack is empty")
	}
	h.sp--
	ref := h.stack[h.sp]
	h.stack[h.sp] = Nil
	return ref, nil
}

func (h *Heap) PopN(n int) error {
	if n < 0 || h.sp < n {
		return fault.Boundsf("popN", "stack is too small: %d < %d", h.sp, n)
	}
	for i := 0; i < n; i++ {
		h.sp--
		h.stack[h.sp] = Nil
	}
	return nil
}

// Peek returns the value offset slots below the top; Peek(0) is the top.
func (h *Heap) Peek(offset int) (Ref, error) {
	if offset < 0 || h.sp <= offset {
		return Nil, fault.Boundsf("peek", "stack is too small: depth %d, offset %d", h.sp, offset)
	}
	return h.stack[h.sp-1-offset], nil
}

// Set overwrites the slot offset places below the top.
func (h *Heap) Set(offset int, ref Ref) error {
	if offset < 0 || h.sp <= offset {
		return fault.Boundsf("set", "stack is too small: depth %d, offset %d", h.sp, offset)
	}
	h.stack[h.sp-1-offset] = ref
	return nil
}

func (h *Heap) Depth() int { return h.sp }

// StackCap is the length of the backing store, for growth checks.
func (h *Heap) StackCap() int { return len(h.stack) }

// Stack returns a copy of the live stack, bottom first.
func (h *Heap) Stack() []Ref {
	out := make([]Ref, h.sp)
	copy(out, h.stack[:h.sp])
	return out
}

func (h *Heap) NewInt(i int32) (Ref, error) {
	h.beforeAlloc()
	if err := h.charge("alloc", 1); err != nil {
		return Nil, err
	}
	ref := h.alloc(Value{Kind: KindInt, Int: i})
	h.Push(ref)
	return ref, nil
}

// NewBool allocates a fresh boolean. The engine uses True and False instead.
func (h *Heap) NewBool(b bool) (Ref, error) {
	h.beforeAlloc()
	if err := h.charge("alloc", 1); err != nil {
		return Nil, err
	}
	ref := h.alloc(Value{Kind: KindBool, Bool: b})
	h.Push(ref)
	return ref, nil
}

// NewClosure captures env, which must be an activation or Nil. env has to be
// reachable from the roots: the collector runs before the check.
func (h *Heap) NewClosure(env Ref, ip int32) (Ref, error) {
	h.beforeAlloc()
	if err := h.expect(env, KindActivation, "newClosure", "previous activation"); err != nil {
		return Nil, err
	}
	if err := h.charge("alloc", 1); err != nil {
		return Nil, err
	}
	ref := h.alloc(Value{Kind: KindClosure, Closure: Closure{Env: env, IP: ip}})
	h.Push(ref)
	return ref, nil
}

func (h *Heap) NewActivation(parent, closure Ref, returnIP int32) (Ref, error) {
	h.beforeAlloc()
	if err := h.expect(parent, KindActivation, "newActivation", "parent activation"); err != nil {
		return Nil, err
	}
	if err := h.expect(closure, KindClosure, "newActivation", "closure"); err != nil {
		return Nil, err
	}
	if err := h.charge("alloc", 1); err != nil {
		return Nil, err
	}
	ref := h.alloc(Value{Kind: KindActivation, Activation: Activation{
		Parent:   parent,
		Closure:  closure,
		ReturnIP: returnIP,
	}})
	h.Push(ref)
	return ref, nil
}

func (h *Heap) expect(ref Ref, kind Kind, op, what string) error {
	if ref == Nil {
		return nil
	}
	v, ok := h.get(ref)
	if !ok {
		return fault.Typef(op, "%s is not a live value: #%d", what, ref)
	}
	if v.Kind != kind {
		return fault.Typef(op, "%s is not a %s: %s", what, kind, h.Format(ref))
	}
	return nil
}

func (h *Heap) get(ref Ref) (*Value, bool) {
	if ref == Nil || int(ref) >= len(h.slots) || !h.slots[ref].used {
		return nil, false
	}
	return &h.slots[ref].val, true
}

// Get returns a copy of the value at ref. Locals share storage with the heap.
func (h *Heap) Get(ref Ref) (Value, bool) {
	v, ok := h.get(ref)
	if !ok {
		return Value{}, false
	}
	return *v, true
}

func (h *Heap) activation(ref Ref, op string) (*Activation, error) {
	v, ok := h.get(ref)
	if !ok || v.Kind != KindActivation {
		return nil, fault.Typef(op, "not an activation record: %s", h.Format(ref))
	}
	return &v.Activation, nil
}

// MaxLocals is the largest locals array one activation may have.
const MaxLocals = 1 << 16

// AllocLocals sizes the locals of act. It may happen once per activation.
func (h *Heap) AllocLocals(act Ref, n int) error {
	a, err := h.activation(act, "ENTER")
	if err != nil {
		return err
	}
	if a.Locals != nil {
		return fault.Protocolf("ENTER", "activation already has state")
	}
	if n < 0 {
		return fault.Boundsf("ENTER", "negative locals size: %d", n)
	}
	if n > MaxLocals {
		return fault.Boundsf("ENTER", "locals size too large: %d > %d", n, MaxLocals)
	}
	// each local slot counts as a live value
	if err := h.charge("ENTER", n); err != nil {
		return err
	}
	a.Locals = make([]Ref, n)
	h.allocated++
	return nil
}

func (h *Heap) Local(act Ref, i int) (Ref, error) {
	a, err := h.activation(act, "PUSH_VAR")
	if err != nil {
		return Nil, err
	}
	if a.Locals == nil {
		return Nil, fault.Protocolf("PUSH_VAR", "activation has no state")
	}
	if i < 0 || i >= len(a.Locals) {
		return Nil, fault.Boundsf("PUSH_VAR", "offset out of bounds: %d >= %d", i, len(a.Locals))
	}
	return a.Locals[i], nil
}

func (h *Heap) SetLocal(act Ref, i int, ref Ref) error {
	a, err := h.activation(act, "STORE_VAR")
	if err != nil {
		return err
	}
	if a.Locals == nil {
		return fault.Protocolf("STORE_VAR", "activation has no state")
	}
	if i < 0 || i >= len(a.Locals) {
		return fault.Boundsf("STORE_VAR", "index out of bounds: %d", i)
	}
	a.Locals[i] = ref
	return nil
}

// Allocated is the net number of live allocations: values plus locals
// arrays. It is zero once Destroy has run.
func (h *Heap) Allocated() int { return h.allocated }

func (h *Heap) Size() int { return h.size }

func (h *Heap) Capacity() int { return h.capacity }

func (h *Heap) Stats() Stats { return h.stats }

// Objects returns a copy of the allocation list.
func (h *Heap) Objects() []Ref {
	out := make([]Ref, len(h.objects))
	copy(out, h.objects)
	return out
}

// Destroy drops both roots and the canonical booleans, then collects
// everything.
func (h *Heap) Destroy() {
	for i := 0; i < h.sp; i++ {
		h.stack[i] = Nil
	}
	h.sp = 0
	h.current = Nil
	h.trueRef = Nil
	h.falseRef = Nil
	h.Collect()
	h.stack = nil
}

func (h *Heap) alloc(v Value) Ref {
	v.Color = h.color

	var ref Ref
	if n := len(h.free); n > 0 {
		ref = h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[ref] = slot{used: true, val: v}
	} else {
		ref = Ref(len(h.slots))
		h.slots = append(h.slots, slot{used: true, val: v})
	}

	h.objects = append(h.objects, ref)
	h.size++
	h.allocated++
	h.stats.Allocations++
	if h.size > h.stats.PeakSize {
		h.stats.PeakSize = h.size
	}
	return ref
}

func (h *Heap) release(ref Ref) {
	s := &h.slots[ref]
	if s.val.Kind == KindActivation && s.val.Activation.Locals != nil {
		h.allocated--
		h.budget.Release(len(s.val.Activation.Locals))
	}
	*s = slot{}
	h.free = append(h.free, ref)
	h.size--
	h.allocated--
	h.budget.Release(1)
}
