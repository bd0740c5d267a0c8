package heap

import (
	"testing"

	"bci/internal/fault"
	"bci/internal/limits"
)

func newTestHeap(stackSize int) *Heap {
	return New(Options{StackSize: stackSize})
}

func contains(refs []Ref, ref Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func TestStackLIFO(t *testing.T) {
	h := newTestHeap(2)
	var pushed []Ref
	for i := 0; i < 50; i++ {
		ref, err := h.NewInt(int32(i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pushed = append(pushed, ref)
	}
	if h.Depth() != 50 {
		t.Fatalf("expected depth 50, got %d", h.Depth())
	}
	for i := len(pushed) - 1; i >= 0; i-- {
		ref, err := h.Pop()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ref != pushed[i] {
			t.Fatalf("pop %d: expected %d, got %d", i, pushed[i], ref)
		}
		v, _ := h.Get(ref)
		if v.Int != int32(i) {
			t.Fatalf("pop %d: expected value %d, got %d", i, i, v.Int)
		}
	}
}

func TestStackGrowthKeepsEntries(t *testing.T) {
	h := newTestHeap(1)
	h.Push(h.True())
	h.Push(h.False())
	if h.StackCap() != 2 {
		t.Fatalf("expected capacity 2, got %d", h.StackCap())
	}
	h.Push(h.True())
	if h.StackCap() != 4 {
		t.Fatalf("expected capacity 4, got %d", h.StackCap())
	}
	got := h.Stack()
	want := []Ref{h.True(), h.False(), h.True()}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if h.stack[3] != Nil {
		t.Fatalf("expected new slot to be Nil, got %d", h.stack[3])
	}
}

func TestStackUnderflow(t *testing.T) {
	h := newTestHeap(4)
	if _, err := h.Pop(); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}
	h.Push(h.True())
	if err := h.PopN(2); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}
	if _, err := h.Peek(1); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}
	if ref, err := h.Peek(0); err != nil || ref != h.True() {
		t.Fatalf("expected true on top, got %d, %v", ref, err)
	}
}

func TestConstructorsValidateTags(t *testing.T) {
	h := newTestHeap(8)
	i, _ := h.NewInt(1)

	if _, err := h.NewClosure(i, 0); !fault.Is(err, fault.Type) {
		t.Fatalf("expected type fault for closure over int, got %v", err)
	}
	if _, err := h.NewActivation(i, Nil, 0); !fault.Is(err, fault.Type) {
		t.Fatalf("expected type fault for int parent, got %v", err)
	}
	act, err := h.NewActivation(Nil, Nil, NoReturn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.NewActivation(Nil, act, 0); !fault.Is(err, fault.Type) {
		t.Fatalf("expected type fault for activation as closure, got %v", err)
	}
	if _, err := h.NewClosure(act, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocalsProtocol(t *testing.T) {
	h := newTestHeap(8)
	act, _ := h.NewActivation(Nil, Nil, NoReturn)

	if _, err := h.Local(act, 0); !fault.Is(err, fault.Protocol) {
		t.Fatalf("expected protocol fault before ENTER, got %v", err)
	}
	if err := h.SetLocal(act, 0, h.True()); !fault.Is(err, fault.Protocol) {
		t.Fatalf("expected protocol fault before ENTER, got %v", err)
	}
	if err := h.AllocLocals(act, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.AllocLocals(act, 2); !fault.Is(err, fault.Protocol) {
		t.Fatalf("expected protocol fault on second ENTER, got %v", err)
	}
	if err := h.SetLocal(act, 2, h.True()); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}
	if _, err := h.Local(act, -1); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}
	if err := h.SetLocal(act, 1, h.False()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref, err := h.Local(act, 1); err != nil || ref != h.False() {
		t.Fatalf("expected false, got %d, %v", ref, err)
	}
}

func TestCollectReachability(t *testing.T) {
	h := newTestHeap(8)

	root, _ := h.NewActivation(Nil, Nil, NoReturn)
	_ = h.SetCurrent(root)
	_ = h.AllocLocals(root, 2)

	// root <-> cl cycle, callee reachable only through root's locals
	cl, _ := h.NewClosure(root, 10)
	_ = h.SetLocal(root, 1, cl)
	callee, _ := h.NewActivation(root, cl, 3)
	_ = h.AllocLocals(callee, 1)
	_ = h.SetLocal(root, 0, callee)
	kept, _ := h.NewInt(42)
	_ = h.SetLocal(callee, 0, kept)

	// an unreachable cycle: activation whose locals hold a closure over itself
	orphan, _ := h.NewActivation(Nil, Nil, 0)
	_ = h.AllocLocals(orphan, 1)
	orphanCl, _ := h.NewClosure(orphan, 1)
	_ = h.SetLocal(orphan, 0, orphanCl)
	garbage, _ := h.NewInt(7)
	stacked, _ := h.NewInt(99)

	if err := h.PopN(h.Depth()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Push(stacked)

	h.Collect()
	objects := h.Objects()

	for _, ref := range []Ref{root, cl, callee, kept, stacked, h.True(), h.False()} {
		if !contains(objects, ref) {
			t.Fatalf("reachable value %s was collected", h.Format(ref))
		}
	}
	for _, ref := range []Ref{orphan, orphanCl, garbage} {
		if contains(objects, ref) {
			t.Fatalf("unreachable value #%d survived", ref)
		}
		if _, ok := h.Get(ref); ok {
			t.Fatalf("unreachable value #%d still readable", ref)
		}
	}
	if h.Size() != len(objects) {
		t.Fatalf("size %d does not match allocation list %d", h.Size(), len(objects))
	}
}

func TestCollectorRunsBeforeEveryAllocation(t *testing.T) {
	h := newTestHeap(8)
	_, _ = h.NewInt(1)
	_, _ = h.Pop()
	before := h.Stats()

	_, _ = h.NewInt(2)
	after := h.Stats()
	if after.Collections != before.Collections+1 {
		t.Fatalf("expected one collection per allocation")
	}
	if after.Released != before.Released+1 {
		t.Fatalf("expected the popped int to be reclaimed, released %d", after.Released-before.Released)
	}
}

func TestWatermarkPolicy(t *testing.T) {
	h := New(Options{StackSize: 4, Policy: PolicyWatermark, Capacity: 4})
	for i := 0; i < 4; i++ {
		_, _ = h.NewInt(int32(i))
	}
	// the booleans and two live ints reach the watermark with nothing to free
	if h.Stats().Collections != 1 {
		t.Fatalf("expected 1 collection, got %d", h.Stats().Collections)
	}
	if h.Capacity() != 8 {
		t.Fatalf("expected capacity to double to 8, got %d", h.Capacity())
	}
}

func TestColorAndKindAreIndependent(t *testing.T) {
	h := newTestHeap(8)
	act, _ := h.NewActivation(Nil, Nil, NoReturn)
	_ = h.SetCurrent(act)
	cl, _ := h.NewClosure(act, 5)
	i, _ := h.NewInt(3)
	kinds := map[Ref]Kind{act: KindActivation, cl: KindClosure, i: KindInt, h.True(): KindBool}

	for cycle := 0; cycle < 4; cycle++ {
		colorBefore := h.slots[i].val.Color
		h.Collect()
		for ref, k := range kinds {
			v, ok := h.Get(ref)
			if !ok {
				t.Fatalf("cycle %d: value #%d collected", cycle, ref)
			}
			if v.Kind != k {
				t.Fatalf("cycle %d: kind changed from %s to %s", cycle, k, v.Kind)
			}
			if v.Color != h.color {
				t.Fatalf("cycle %d: live value not tagged with live color", cycle)
			}
		}
		if h.slots[i].val.Color == colorBefore {
			t.Fatalf("cycle %d: color did not flip", cycle)
		}
	}
}

func TestBudget(t *testing.T) {
	h := New(Options{StackSize: 8, Budget: limits.NewBudget(4)})
	if _, err := h.NewInt(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.NewInt(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.NewInt(3); !fault.Is(err, fault.Limit) {
		t.Fatalf("expected limit fault, got %v", err)
	}
	_ = h.PopN(2)
	if _, err := h.NewInt(4); err != nil {
		t.Fatalf("collection should free budget: %v", err)
	}
}

func TestBudgetUntouchedByTypeFault(t *testing.T) {
	b := limits.NewBudget(10)
	h := New(Options{StackSize: 8, Budget: b})
	n, err := h.NewInt(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	used := b.Used()

	if _, err := h.NewClosure(n, 0); !fault.Is(err, fault.Type) {
		t.Fatalf("expected type fault, got %v", err)
	}
	if _, err := h.NewActivation(n, Nil, NoReturn); !fault.Is(err, fault.Type) {
		t.Fatalf("expected type fault, got %v", err)
	}
	if b.Used() != used {
		t.Fatalf("expected %d values charged, got %d", used, b.Used())
	}
}

func TestBudgetCountsLocals(t *testing.T) {
	b := limits.NewBudget(10)
	h := New(Options{StackSize: 8, Budget: b})
	act, err := h.NewActivation(Nil, Nil, NoReturn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.AllocLocals(act, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Used() != 7 {
		t.Fatalf("expected 7 values charged, got %d", b.Used())
	}

	other, err := h.NewActivation(Nil, Nil, NoReturn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.AllocLocals(other, 5); !fault.Is(err, fault.Limit) {
		t.Fatalf("expected limit fault, got %v", err)
	}
	if err := h.AllocLocals(other, MaxLocals+1); !fault.Is(err, fault.Bounds) {
		t.Fatalf("expected bounds fault, got %v", err)
	}

	_ = h.PopN(2)
	h.Collect()
	if b.Used() != 2 {
		t.Fatalf("expected only the booleans charged, got %d", b.Used())
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	h := newTestHeap(4)
	act, _ := h.NewActivation(Nil, Nil, NoReturn)
	_ = h.SetCurrent(act)
	_ = h.AllocLocals(act, 3)
	cl, _ := h.NewClosure(act, 0)
	_ = h.SetLocal(act, 0, cl)
	_, _ = h.NewInt(5)

	if h.Allocated() != 6 {
		t.Fatalf("expected 6 allocations, got %d", h.Allocated())
	}
	h.Destroy()
	if h.Allocated() != 0 {
		t.Fatalf("expected no leaked allocations, got %d", h.Allocated())
	}
	if len(h.Objects()) != 0 {
		t.Fatalf("expected empty allocation list, got %d", len(h.Objects()))
	}
}

func TestFormat(t *testing.T) {
	h := newTestHeap(8)
	outer, _ := h.NewActivation(Nil, Nil, NoReturn)
	_ = h.AllocLocals(outer, 2)
	cl, _ := h.NewClosure(outer, 12)
	inner, _ := h.NewActivation(outer, cl, 30)
	i, _ := h.NewInt(-4)
	_ = h.SetLocal(outer, 0, i)

	tests := map[Ref]string{
		Nil:       "-",
		i:         "-4",
		h.True():  "true",
		h.False(): "false",
		cl:        "c12#1",
		outer:     "<-, -, -, [-4, -]>",
		inner:     "<<-, -, -, [-4, -]>, c12#1, 30, ->",
	}
	for ref, want := range tests {
		if got := h.Format(ref); got != want {
			t.Fatalf("Format(#%d): expected %q, got %q", ref, want, got)
		}
	}
}
