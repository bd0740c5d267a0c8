package heap

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref addresses a value slot in a Heap. Ref(0) is never a valid value.
type Ref uint32

const Nil Ref = 0

type Kind uint8

const (
	KindInt Kind = iota
	KindBool
	KindClosure
	KindActivation
	// KindNil describes the absence of a value, such as a local that was
	// never stored. No slot carries it.
	KindNil
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindClosure:
		return "Closure"
	case KindActivation:
		return "Activation"
	case KindNil:
		return "Nil"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Color is the reachability mark. It lives in its own field so that marking
// can never disturb a value's Kind.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) flip() Color {
	if c == White {
		return Black
	}
	return White
}

// NoReturn is the return address of the outermost activation.
const NoReturn int32 = -1

type Closure struct {
	Env Ref // activation captured at creation, or Nil
	IP  int32
}

type Activation struct {
	Parent   Ref
	Closure  Ref
	ReturnIP int32
	Locals   []Ref // nil until sized by AllocLocals
}

type Value struct {
	Kind       Kind
	Color      Color
	Int        int32
	Bool       bool
	Closure    Closure
	Activation Activation
}

type slot struct {
	used bool
	val  Value
}

// Format renders ref for traces and results: "-" for Nil, integers and
// booleans by value, closures as c<ip>#<depth> and activations as
// <parent, closure, returnIP, [locals]>.
func (h *Heap) Format(ref Ref) string {
	var b strings.Builder
	h.format(&b, ref)
	return b.String()
}

func (h *Heap) format(b *strings.Builder, ref Ref) {
	v, ok := h.get(ref)
	if !ok {
		b.WriteString("-")
		return
	}
	switch v.Kind {
	case KindInt:
		b.WriteString(strconv.FormatInt(int64(v.Int), 10))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindClosure:
		fmt.Fprintf(b, "c%d#%d", v.Closure.IP, h.activationDepth(v.Closure.Env))
	case KindActivation:
		a := &v.Activation
		b.WriteString("<")
		h.format(b, a.Parent)
		b.WriteString(", ")
		h.format(b, a.Closure)
		b.WriteString(", ")
		if a.ReturnIP == NoReturn {
			b.WriteString("-")
		} else {
			b.WriteString(strconv.FormatInt(int64(a.ReturnIP), 10))
		}
		b.WriteString(", ")
		if a.Locals == nil {
			b.WriteString("-")
		} else {
			b.WriteString("[")
			for i, l := range a.Locals {
				if i > 0 {
					b.WriteString(", ")
				}
				h.format(b, l)
			}
			b.WriteString("]")
		}
		b.WriteString(">")
	}
}

// activationDepth counts the dynamic parents above ref, ref included.
func (h *Heap) activationDepth(ref Ref) int {
	depth := 0
	for {
		v, ok := h.get(ref)
		if !ok || v.Kind != KindActivation {
			return depth
		}
		depth++
		ref = v.Activation.Parent
	}
}
