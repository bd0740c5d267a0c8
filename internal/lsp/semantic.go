package lsp

import (
	"strings"

	"bci/internal/code"
)

// semantic token type indices (must match legend order in server)
const (
	ttKeyword  = 0
	ttNumber   = 1
	ttFunction = 2
	ttComment  = 3
)

const (
	modDecl = 1 << 0
)

// SemTok is one highlighted span. Col and Length count UTF-16 code units;
// Line and Col are 1-based.
type SemTok struct {
	Line   int
	Col    int
	Length int
	Type   int
	Mods   int
}

// SemanticTokens classifies mnemonics as keywords, label definitions and
// references as functions, int operands as numbers, and comment lines.
func SemanticTokens(doc *Document) []SemTok {
	sem := make([]SemTok, 0, 4*len(doc.Program.Instructions))

	add := func(line, col int, text string, typ, mods int) {
		lineText, ok := doc.line(line)
		if !ok {
			return
		}
		sem = append(sem, SemTok{
			Line:   line,
			Col:    int(utf16Col(lineText, col)) + 1,
			Length: utf16Len(text),
			Type:   typ,
			Mods:   mods,
		})
	}

	for i, line := range doc.lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			add(i+1, len(line)-len(trimmed)+1, strings.TrimRight(trimmed, "\r"), ttComment, 0)
		}
	}
	for _, l := range doc.Program.Labels {
		add(l.Line, l.Col-1, ":"+l.Name, ttFunction, modDecl)
	}
	for _, ins := range doc.Program.Instructions {
		add(ins.Line, ins.Col, ins.Def.Name, ttKeyword, 0)
		for _, op := range ins.Operands {
			if op.Kind == code.OperandLabel {
				add(ins.Line, op.Col, op.Text, ttFunction, 0)
			} else {
				add(ins.Line, op.Col, op.Text, ttNumber, 0)
			}
		}
	}
	return sem
}
