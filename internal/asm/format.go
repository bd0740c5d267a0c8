package asm

import (
	"fmt"
	"strings"

	"bci/internal/code"
)

// Format renders bytecode as assembly text that Parse reads back to the same
// bytes. Every jump or closure target gets a label named L<offset>.
func Format(ins code.Instructions) (string, error) {
	lines, err := code.Disassemble(ins)
	if err != nil {
		return "", err
	}

	boundaries := map[int]bool{len(ins): true}
	for _, l := range lines {
		boundaries[l.Offset] = true
	}
	targets := map[int]bool{}
	for _, l := range lines {
		for i, k := range l.Def.Operands {
			if k != code.OperandLabel {
				continue
			}
			t := int(l.Operands[i])
			if !boundaries[t] {
				return "", fmt.Errorf("%d: %s target %d is not an instruction boundary", l.Offset, l.Def.Name, t)
			}
			targets[t] = true
		}
	}

	var out strings.Builder
	for _, l := range lines {
		if targets[l.Offset] {
			fmt.Fprintf(&out, ":L%d\n", l.Offset)
		}
		out.WriteString(l.Def.Name)
		for i, o := range l.Operands {
			if l.Def.Operands[i] == code.OperandLabel {
				fmt.Fprintf(&out, " L%d", o)
			} else {
				fmt.Fprintf(&out, " %d", o)
			}
		}
		out.WriteString("\n")
	}
	if targets[len(ins)] {
		fmt.Fprintf(&out, ":L%d\n", len(ins))
	}
	return out.String(), nil
}
