package vm

import (
	"bci/internal/heap"
	"bci/internal/limits"
)

func (m *VM) newHeap() {
	m.budget = nil
	if m.maxValues > 0 {
		m.budget = limits.NewBudget(m.maxValues)
	}
	m.heap = heap.New(heap.Options{
		StackSize: m.stackSize,
		Policy:    m.policy,
		Capacity:  m.capacity,
		Budget:    m.budget,
	})
}

// teardown destroys the heap and reports what it could not release.
func (m *VM) teardown() int {
	m.heap.Destroy()
	leaked := m.heap.Allocated()
	if leaked != 0 {
		m.log.Errorf("memory leak detected: %d allocations leaked", leaked)
	}
	return leaked
}

// PeakValues is the highest number of values live at once during the last
// run, or 0 when no value budget was set.
func (m *VM) PeakValues() int {
	return m.budget.Peak()
}
