package code

import (
	"bytes"
	"fmt"
)

// ReadOperands decodes the operands of def from ins, which starts right after
// the opcode byte. It returns the operands and the number of bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int32, int, error) {
	operands := make([]int32, len(def.Operands))
	offset := 0

	for i := range def.Operands {
		if offset+OperandWidth > len(ins) {
			return operands, offset, fmt.Errorf("%s: operand %d truncated", def.Name, i+1)
		}
		operands[i] = ReadInt32(ins[offset:])
		offset += OperandWidth
	}
	return operands, offset, nil
}

type Line struct {
	Offset   int
	Def      *Definition
	Operands []int32
}

func (l Line) String() string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%d: %s", l.Offset, l.Def.Name)
	for _, o := range l.Operands {
		fmt.Fprintf(&out, " %d", o)
	}
	return out.String()
}

// Disassemble decodes the whole stream. It stops at the first unknown opcode
// or truncated operand.
func Disassemble(ins Instructions) ([]Line, error) {
	var lines []Line

	i := 0
	for i < len(ins) {
		op := Opcode(ins[i])
		def, ok := Lookup(op)
		if !ok {
			return lines, fmt.Errorf("%d: unknown opcode: %d", i, byte(op))
		}
		operands, read, err := ReadOperands(def, ins[i+1:])
		if err != nil {
			return lines, fmt.Errorf("%d: %w", i, err)
		}
		lines = append(lines, Line{Offset: i, Def: def, Operands: operands})
		i += 1 + read
	}
	return lines, nil
}

func (ins Instructions) String() string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		op := Opcode(ins[i])
		def, ok := Lookup(op)
		if !ok {
			fmt.Fprintf(&out, "%04d UNKNOWN_OPCODE %d\n", i, op)
			i++
			continue
		}

		operands, read, err := ReadOperands(def, ins[i+1:])
		if err != nil {
			fmt.Fprintf(&out, "%04d %s TRUNCATED\n", i, def.Name)
			break
		}

		fmt.Fprintf(&out, "%04d %s", i, def.Name)
		for _, o := range operands {
			fmt.Fprintf(&out, " %d", o)
		}
		fmt.Fprintf(&out, "\n")

		i += 1 + read
	}

	return out.String()
}
