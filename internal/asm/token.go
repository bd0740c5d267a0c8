package asm

import "bci/internal/code"

type TokenKind int

const (
	TokenMnemonic TokenKind = iota
	TokenLabel              // a ":name" definition
	TokenLabelRef           // a label operand
	TokenInt
)

type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
	Ins  *Instruction // nil for label definitions
}

func within(col, start int, text string) bool {
	return col >= start && col <= start+len(text)
}

// TokenAt finds the token covering the 1-based line and byte column. A
// column just past the end of a token still selects it.
func (p *Program) TokenAt(line, col int) (Token, bool) {
	for _, l := range p.Labels {
		if l.Line == line && within(col, l.Col-1, ":"+l.Name) {
			return Token{Kind: TokenLabel, Text: l.Name, Line: l.Line, Col: l.Col}, true
		}
	}
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		if ins.Line != line {
			continue
		}
		if within(col, ins.Col, ins.Def.Name) {
			return Token{Kind: TokenMnemonic, Text: ins.Def.Name, Line: line, Col: ins.Col, Ins: ins}, true
		}
		for _, op := range ins.Operands {
			if !within(col, op.Col, op.Text) {
				continue
			}
			kind := TokenInt
			if op.Kind == code.OperandLabel {
				kind = TokenLabelRef
			}
			return Token{Kind: kind, Text: op.Text, Line: line, Col: op.Col, Ins: ins}, true
		}
	}
	return Token{}, false
}

// References lists every use of the label name as an operand.
func (p *Program) References(name string) []Token {
	var out []Token
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		for _, op := range ins.Operands {
			if op.Text == name && op.Kind == code.OperandLabel {
				out = append(out, Token{Kind: TokenLabelRef, Text: name, Line: ins.Line, Col: op.Col, Ins: ins})
			}
		}
	}
	return out
}
