package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Pos is a 1-based line and byte column.
type Pos struct {
	Line int
	Col  int
}

func units(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += units(r)
	}
	return n
}

// utf16Col converts a 1-based byte column of lineText into the 0-based
// UTF-16 character offset LSP expects.
func utf16Col(lineText string, byteCol int) uint32 {
	limit := min(max(byteCol-1, 0), len(lineText))
	return uint32(utf16Len(lineText[:limit]))
}

// byteCol converts a 0-based UTF-16 character offset into a 1-based byte
// column, clamped to one past the end of the line.
func byteCol(lineText string, char int) int {
	seen := 0
	for idx, r := range lineText {
		seen += units(r)
		if seen > char {
			return idx + 1
		}
	}
	return len(lineText) + 1
}

func (d *Document) line(n int) (string, bool) {
	if n <= 0 || n > len(d.lines) {
		return "", false
	}
	return d.lines[n-1], true
}

func (d *Document) toPos(pos protocol.Position) (Pos, bool) {
	lineText, ok := d.line(int(pos.Line) + 1)
	if !ok {
		return Pos{}, false
	}
	return Pos{Line: int(pos.Line) + 1, Col: byteCol(lineText, int(pos.Character))}, true
}

// span is the LSP range of text starting at the 1-based line and byte
// column. Empty text still covers one character.
func (d *Document) span(line, col int, text string) protocol.Range {
	lineText, ok := d.line(line)
	if !ok {
		return protocol.Range{}
	}
	start := protocol.Position{Line: uint32(line - 1), Character: utf16Col(lineText, col)}
	end := start
	end.Character += uint32(max(1, utf16Len(text)))
	return protocol.Range{Start: start, End: end}
}

// FullDocumentRange covers all of text, ending after its last character.
func FullDocumentRange(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	return protocol.Range{
		End: protocol.Position{Line: uint32(last), Character: uint32(utf16Len(lines[last]))},
	}
}
