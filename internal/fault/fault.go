// Package fault defines the single error type raised by the heap and the
// execution engine. Every fault is fatal to the running program: the engine
// stops at the first one and hands it to its caller.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Decode   Kind = iota // bad opcode, operand, or instruction pointer
	Type                 // tag mismatch at use or construction
	Bounds               // stack underflow, locals index out of range
	Protocol             // locals sized twice or used before sizing
	Arith                // division by zero
	Limit                // live value budget exhausted
)

func (k Kind) String() string {
	switch k {
	case Decode:
		return "decode"
	case Type:
		return "type"
	case Bounds:
		return "bounds"
	case Protocol:
		return "protocol"
	case Arith:
		return "arith"
	case Limit:
		return "limit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := Decode; k <= Limit; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "run: " + e.Msg
	}
	return fmt.Sprintf("run: %s: %s", e.Op, e.Msg)
}

func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Decodef(op, format string, args ...any) *Error {
	return New(Decode, op, format, args...)
}

func Typef(op, format string, args ...any) *Error {
	return New(Type, op, format, args...)
}

func Boundsf(op, format string, args ...any) *Error {
	return New(Bounds, op, format, args...)
}

func Protocolf(op, format string, args ...any) *Error {
	return New(Protocol, op, format, args...)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
