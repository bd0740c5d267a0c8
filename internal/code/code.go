package code

import (
	"encoding/binary"
	"fmt"
	"sort"
)

type Opcode byte

const (
	OpPushTrue Opcode = iota
	OpPushFalse
	OpPushInt     // operand: literal
	OpPushVar     // operands: closure depth, local offset
	OpPushClosure // operand: target address
	OpPushTuple   // operand: element count (reserved, never executed)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpJmp     // operand: target address
	OpJmpTrue // operand: target address
	OpSwapCall
	OpEnter // operand: locals size
	OpRet
	OpStoreVar // operand: local index
)

// OperandWidth is the encoded size of every operand: a little-endian int32.
const OperandWidth = 4

type OperandKind int

const (
	OperandInt OperandKind = iota
	OperandLabel
)

func (k OperandKind) String() string {
	if k == OperandLabel {
		return "label"
	}
	return "int"
}

type Instructions []byte

type Definition struct {
	Name     string
	Opcode   Opcode
	Operands []OperandKind
}

func (d *Definition) Arity() int { return len(d.Operands) }

// Width is the number of bytes the instruction occupies, opcode included.
func (d *Definition) Width() int { return 1 + OperandWidth*len(d.Operands) }

var definitions = map[Opcode]*Definition{
	OpPushTrue:    {"PUSH_TRUE", OpPushTrue, nil},
	OpPushFalse:   {"PUSH_FALSE", OpPushFalse, nil},
	OpPushInt:     {"PUSH_INT", OpPushInt, []OperandKind{OperandInt}},
	OpPushVar:     {"PUSH_VAR", OpPushVar, []OperandKind{OperandInt, OperandInt}},
	OpPushClosure: {"PUSH_CLOSURE", OpPushClosure, []OperandKind{OperandLabel}},
	OpPushTuple:   {"PUSH_TUPLE", OpPushTuple, []OperandKind{OperandInt}},
	OpAdd:         {"ADD", OpAdd, nil},
	OpSub:         {"SUB", OpSub, nil},
	OpMul:         {"MUL", OpMul, nil},
	OpDiv:         {"DIV", OpDiv, nil},
	OpEq:          {"EQ", OpEq, nil},
	OpJmp:         {"JMP", OpJmp, []OperandKind{OperandLabel}},
	OpJmpTrue:     {"JMP_TRUE", OpJmpTrue, []OperandKind{OperandLabel}},
	OpSwapCall:    {"SWAP_CALL", OpSwapCall, nil},
	OpEnter:       {"ENTER", OpEnter, []OperandKind{OperandInt}},
	OpRet:         {"RET", OpRet, nil},
	OpStoreVar:    {"STORE_VAR", OpStoreVar, []OperandKind{OperandInt}},
}

var byName = func() map[string]*Definition {
	m := make(map[string]*Definition, len(definitions))
	for _, def := range definitions {
		m[def.Name] = def
	}
	return m
}()

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func LookupName(name string) (*Definition, bool) {
	def, ok := byName[name]
	return def, ok
}

// Definitions returns the catalog ordered by opcode.
func Definitions() []*Definition {
	out := make([]*Definition, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Make encodes one instruction. Missing operands encode as zero and extra
// operands are ignored; an unknown opcode yields an empty sequence.
func Make(op Opcode, operands ...int) Instructions {
	def, ok := definitions[op]
	if !ok {
		return Instructions{}
	}

	ins := make([]byte, def.Width())
	ins[0] = byte(op)

	offset := 1
	for i := range def.Operands {
		if i < len(operands) {
			binary.LittleEndian.PutUint32(ins[offset:], uint32(int32(operands[i])))
		}
		offset += OperandWidth
	}
	return ins
}

func ReadInt32(ins Instructions) int32 {
	return int32(binary.LittleEndian.Uint32(ins))
}

// Signature renders a definition as it would be written in assembly,
// e.g. "PUSH_VAR <int> <int>".
func (d *Definition) Signature() string {
	s := d.Name
	for _, k := range d.Operands {
		s += " <" + k.String() + ">"
	}
	return s
}
