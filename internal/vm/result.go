package vm

import (
	"fmt"
	"strconv"

	"bci/internal/heap"
)

// Result describes a run that ended in the outermost RET.
type Result struct {
	Value      string // the printed result line, without the newline
	Kind       heap.Kind
	Steps      int64
	Stats      heap.Stats
	PeakValues int
	Leaked     int // allocations left after teardown; 0 for a clean run
}

func (m *VM) finish() (*Result, error) {
	ref, err := m.heap.Pop()
	if err != nil {
		return nil, err
	}
	v, ok := m.heap.Get(ref)
	if !ok {
		v.Kind = heap.KindNil
	}

	res := &Result{
		Value: m.formatResult(ref, v),
		Kind:  v.Kind,
		Steps: m.steps,
	}
	res.Leaked = m.teardown()
	res.Stats = m.heap.Stats()
	res.PeakValues = m.budget.Peak()
	m.log.Debugf("run: finished after %d steps, %d collections", res.Steps, res.Stats.Collections)

	if _, err := fmt.Fprintln(m.out, res.Value); err != nil {
		return res, fmt.Errorf("write result: %w", err)
	}
	return res, nil
}

func (m *VM) formatResult(ref heap.Ref, v heap.Value) string {
	switch v.Kind {
	case heap.KindInt:
		return strconv.FormatInt(int64(v.Int), 10) + ": Int"
	case heap.KindBool:
		return strconv.FormatBool(v.Bool) + ": Bool"
	default:
		return m.heap.Format(ref)
	}
}
