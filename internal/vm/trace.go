package vm

import (
	"bytes"
	"fmt"

	"bci/internal/code"
)

// traceInstruction writes "ip: NAME ops: [stack] activation" for the
// instruction about to execute.
func (m *VM) traceInstruction(ip int, def *code.Definition, operands []int32) {
	var out bytes.Buffer

	fmt.Fprintf(&out, "%d: %s", ip, def.Name)
	for _, o := range operands {
		fmt.Fprintf(&out, " %d", o)
	}
	out.WriteString(": [")
	for i, ref := range m.heap.Stack() {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(m.heap.Format(ref))
	}
	out.WriteString("] ")
	out.WriteString(m.heap.Format(m.heap.Current()))
	out.WriteString("\n")

	_, _ = m.trace.Write(out.Bytes())
}
