package heap

import (
	"fmt"
	"time"

	"bci/internal/fault"
	"bci/internal/limits"
)

type Policy int

const (
	// PolicyEveryAlloc collects before every allocation.
	PolicyEveryAlloc Policy = iota
	// PolicyWatermark collects once the live count reaches the capacity
	// and doubles the capacity when a cycle frees too little.
	PolicyWatermark
)

func (p Policy) String() string {
	switch p {
	case PolicyEveryAlloc:
		return "every"
	case PolicyWatermark:
		return "watermark"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "every":
		return PolicyEveryAlloc, nil
	case "watermark":
		return PolicyWatermark, nil
	default:
		return 0, fmt.Errorf("unknown gc policy %q (want every or watermark)", s)
	}
}

func (h *Heap) beforeAlloc() {
	switch h.policy {
	case PolicyWatermark:
		if h.size >= h.capacity {
			h.Collect()
			if h.size >= h.capacity {
				h.capacity *= 2
				h.log.Debugf("memory still full after gc, capacity raised to %d", h.capacity)
			}
		}
	default:
		h.Collect()
	}
}

// charge counts n more live slots against the budget.
func (h *Heap) charge(op string, n int) error {
	if err := h.budget.Charge(n); err != nil {
		if e, ok := err.(limits.MaxValuesError); ok {
			return fault.New(fault.Limit, op, "%s", limits.MaxValuesMessage(e.Limit))
		}
		return err
	}
	return nil
}

// Collect runs one full mark-and-sweep cycle.
func (h *Heap) Collect() {
	start := time.Now()

	live := h.color.flip()
	h.mark(live)
	h.color = live
	marked := time.Now()

	before := h.size
	h.sweep()

	h.stats.Collections++
	h.stats.Released += before - h.size

	if before != h.size {
		h.log.Debugf("collected %d values, %d remaining (mark %s, sweep %s)",
			before-h.size, h.size, marked.Sub(start), time.Since(marked))
	}
}

func (h *Heap) roots() []Ref {
	roots := make([]Ref, 0, h.sp+3)
	roots = append(roots, h.trueRef, h.falseRef, h.current)
	return append(roots, h.stack[:h.sp]...)
}

func (h *Heap) mark(live Color) {
	work := h.roots()
	for len(work) > 0 {
		ref := work[len(work)-1]
		work = work[:len(work)-1]

		v, ok := h.get(ref)
		if !ok || v.Color == live {
			continue
		}
		v.Color = live

		switch v.Kind {
		case KindActivation:
			work = append(work, v.Activation.Parent, v.Activation.Closure)
			work = append(work, v.Activation.Locals...)
		case KindClosure:
			work = append(work, v.Closure.Env)
		}
	}
}

func (h *Heap) sweep() {
	survivors := h.objects[:0]
	for _, ref := range h.objects {
		if h.slots[ref].val.Color == h.color {
			survivors = append(survivors, ref)
			continue
		}
		h.release(ref)
	}
	for i := len(survivors); i < len(h.objects); i++ {
		h.objects[i] = Nil
	}
	h.objects = survivors
}
