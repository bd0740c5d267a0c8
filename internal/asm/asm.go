// Package asm translates assembly text into bytecode.
//
// One instruction per line: a mnemonic followed by space-separated operands.
// Lines starting with '#' are comments and ":name" defines a label at the
// current byte offset. Label operands name a label defined anywhere in the
// file. Int operands are decimal or 0x, 0b, 0o prefixed, with '_' allowed
// between digits.
package asm

import (
	"strings"

	"bci/internal/code"
	"bci/internal/diag"
	"bci/internal/numlit"
)

const (
	CodeUnknownInstruction = "BA0001"
	CodeOperandCount       = "BA0002"
	CodeInvalidInt         = "BA0003"
	CodeUnknownLabel       = "BA0004"
	CodeDuplicateLabel     = "BA0005"
	CodeEmptyLabel         = "BA0006"
)

type Operand struct {
	Kind  code.OperandKind
	Text  string
	Value int32 // resolved offset for labels
	Col   int
}

type Instruction struct {
	Def      *code.Definition
	Operands []Operand
	Offset   int
	Line     int
	Col      int
}

type Label struct {
	Name   string
	Offset int
	Line   int
	Col    int // column of the name, after ':'
}

type Program struct {
	Instructions []Instruction
	Labels       map[string]Label
	Diagnostics  []diag.Diagnostic

	size int
}

type field struct {
	text string
	col  int
}

// fields splits a line on spaces and tabs, keeping 1-based byte columns.
func fields(line string) []field {
	var out []field
	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '\r' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, field{text: line[start:i], col: start + 1})
			start = -1
		}
	}
	return out
}

// Parse reads the whole source and resolves labels. It never stops at the
// first problem: every diagnostic is collected on the Program.
func Parse(src string) *Program {
	p := &Program{Labels: map[string]Label{}}

	for i, line := range strings.Split(src, "\n") {
		lineNo := i + 1
		fs := fields(line)
		if len(fs) == 0 || strings.HasPrefix(fs[0].text, "#") {
			continue
		}
		if strings.HasPrefix(fs[0].text, ":") {
			p.defineLabel(fs[0], lineNo)
			continue
		}
		p.parseInstruction(fs, lineNo)
	}

	p.resolve()
	diag.Sort(p.Diagnostics)
	return p
}

func (p *Program) errorf(id string, line, col, length int, format string, args ...any) {
	p.Diagnostics = append(p.Diagnostics, diag.Errorf(id, line, col, length, format, args...))
}

func (p *Program) defineLabel(f field, line int) {
	name := f.text[1:]
	if name == "" {
		p.errorf(CodeEmptyLabel, line, f.col, 1, "empty label name")
		return
	}
	if prev, ok := p.Labels[name]; ok {
		p.errorf(CodeDuplicateLabel, line, f.col+1, len(name), "duplicate label: %s (first defined on line %d)", name, prev.Line)
		return
	}
	p.Labels[name] = Label{Name: name, Offset: p.size, Line: line, Col: f.col + 1}
}

func (p *Program) parseInstruction(fs []field, line int) {
	name := fs[0]
	def, ok := code.LookupName(name.text)
	if !ok {
		p.errorf(CodeUnknownInstruction, line, name.col, len(name.text), "unknown instruction: %s", name.text)
		return
	}
	args := fs[1:]
	if len(args) != def.Arity() {
		p.errorf(CodeOperandCount, line, name.col, len(name.text),
			"wrong number of operands for %s: expected %d, got %d", def.Name, def.Arity(), len(args))
		return
	}

	ins := Instruction{Def: def, Offset: p.size, Line: line, Col: name.col}
	for i, a := range args {
		op := Operand{Kind: def.Operands[i], Text: a.text, Col: a.col}
		if op.Kind == code.OperandInt {
			v, err := numlit.ParseInt32(a.text)
			if err != nil {
				p.errorf(CodeInvalidInt, line, a.col, len(a.text), "invalid integer operand for %s: %s", def.Name, a.text)
				return
			}
			op.Value = v
		}
		ins.Operands = append(ins.Operands, op)
	}

	p.Instructions = append(p.Instructions, ins)
	p.size += def.Width()
}

func (p *Program) resolve() {
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		for j := range ins.Operands {
			op := &ins.Operands[j]
			if op.Kind != code.OperandLabel {
				continue
			}
			l, ok := p.Labels[op.Text]
			if !ok {
				p.errorf(CodeUnknownLabel, ins.Line, op.Col, len(op.Text), "unknown label: %s", op.Text)
				continue
			}
			op.Value = int32(l.Offset)
		}
	}
}

func (p *Program) HasErrors() bool {
	return diag.HasErrors(p.Diagnostics)
}

// Size is the encoded length in bytes.
func (p *Program) Size() int { return p.size }

// Bytes encodes the program. Unresolved labels encode as zero.
func (p *Program) Bytes() code.Instructions {
	out := make(code.Instructions, 0, p.size)
	for _, ins := range p.Instructions {
		operands := make([]int, len(ins.Operands))
		for i, op := range ins.Operands {
			operands[i] = int(op.Value)
		}
		out = append(out, code.Make(ins.Def.Opcode, operands...)...)
	}
	return out
}

// Error carries every diagnostic of a failed assembly.
type Error struct {
	Diagnostics []diag.Diagnostic
}

func (e *Error) Error() string {
	return e.Format("asm")
}

// Format renders one diagnostic per line, prefixed with path.
func (e *Error) Format(path string) string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.Format(path)
	}
	return strings.Join(lines, "\n")
}

func Assemble(src string) (code.Instructions, error) {
	p := Parse(src)
	if p.HasErrors() {
		return nil, &Error{Diagnostics: p.Diagnostics}
	}
	return p.Bytes(), nil
}
