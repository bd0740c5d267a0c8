package main

import (
	"strings"

	"bci/internal/lsp"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const defaultTabSize = 2

func (s *server) textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	edits := []protocol.TextEdit{}
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return edits, nil
	}

	formatted := lsp.FormatText(doc.Text, indentFor(params.Options))
	if formatted != doc.Text {
		edits = append(edits, protocol.TextEdit{Range: lsp.FullDocumentRange(doc.Text), NewText: formatted})
	}
	return edits, nil
}

// indentFor reads the client's insertSpaces and tabSize options. JSON
// numbers arrive as float64.
func indentFor(opts protocol.FormattingOptions) string {
	if spaces, ok := opts[protocol.FormattingOptionInsertSpaces].(bool); ok && !spaces {
		return "\t"
	}
	size := defaultTabSize
	switch n := opts[protocol.FormattingOptionTabSize].(type) {
	case float64:
		size = int(n)
	case int:
		size = n
	case protocol.UInteger:
		size = int(n)
	}
	if size <= 0 {
		size = defaultTabSize
	}
	return strings.Repeat(" ", size)
}
