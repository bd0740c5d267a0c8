// Package lsp implements editor features for bytecode assembly documents:
// diagnostics, hover, completion, navigation, rename and highlighting.
package lsp

import (
	"fmt"
	"sort"
	"strings"

	"bci/internal/asm"
	"bci/internal/code"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var opDocs = map[code.Opcode]string{
	code.OpPushTrue:    "Push the Bool true.",
	code.OpPushFalse:   "Push the Bool false.",
	code.OpPushInt:     "Push an Int literal.",
	code.OpPushVar:     "Push a local. The first operand counts closure environments outward from the current activation, the second indexes its locals.",
	code.OpPushClosure: "Push a closure over the current activation that enters at the target.",
	code.OpPushTuple:   "Reserved. Executing it is a decode fault.",
	code.OpAdd:         "Pop b, pop a, push a + b. Wraps on overflow.",
	code.OpSub:         "Pop b, pop a, push a - b. Wraps on overflow.",
	code.OpMul:         "Pop b, pop a, push a * b. Wraps on overflow.",
	code.OpDiv:         "Pop b, pop a, push a / b truncated toward zero. Faults when b is 0.",
	code.OpEq:          "Pop two Ints and push whether they are equal.",
	code.OpJmp:         "Continue at the target.",
	code.OpJmpTrue:     "Pop a Bool and continue at the target when it is true.",
	code.OpSwapCall:    "Call the closure under the argument. The closure slot is replaced by the argument and a new activation becomes current.",
	code.OpEnter:       "Allocate the current activation's locals, all unset. At most 65536.",
	code.OpRet:         "Return to the caller's activation, or end the program from the outermost one.",
	code.OpStoreVar:    "Pop a value into a local of the current activation.",
}

func tokenAt(doc *Document, pos protocol.Position) (asm.Token, bool) {
	p, ok := doc.toPos(pos)
	if !ok {
		return asm.Token{}, false
	}
	return doc.Program.TokenAt(p.Line, p.Col)
}

func HoverAt(doc *Document, pos protocol.Position) (*protocol.Hover, error) {
	tok, ok := tokenAt(doc, pos)
	if !ok {
		return nil, nil
	}

	var value string
	switch tok.Kind {
	case asm.TokenMnemonic:
		def := tok.Ins.Def
		value = fmt.Sprintf("```\n%s\n```\n%s\n\nopcode %d, %d bytes", def.Signature(), opDocs[def.Opcode], def.Opcode, def.Width())
	case asm.TokenLabel, asm.TokenLabelRef:
		l, ok := doc.Program.Labels[tok.Text]
		if !ok {
			return nil, nil
		}
		value = fmt.Sprintf("label `%s`: offset %d (line %d)", l.Name, l.Offset, l.Line)
	default:
		return nil, nil
	}

	rng := doc.span(tok.Line, tok.Col, tok.Text)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
		Range:    &rng,
	}, nil
}

// CompletionItems offers mnemonics in the first field of a line and labels
// in label operand positions.
func CompletionItems(doc *Document, pos protocol.Position) []protocol.CompletionItem {
	p, ok := doc.toPos(pos)
	if !ok {
		return nil
	}
	lineText, _ := doc.line(p.Line)
	prefix := lineText[:min(p.Col-1, len(lineText))]

	fs := strings.Fields(prefix)
	field := len(fs)
	if len(fs) > 0 && !strings.HasSuffix(prefix, " ") && !strings.HasSuffix(prefix, "\t") {
		field--
	}
	if len(fs) > 0 && (strings.HasPrefix(fs[0], "#") || strings.HasPrefix(fs[0], ":")) {
		return nil
	}

	if field == 0 {
		defs := code.Definitions()
		out := make([]protocol.CompletionItem, 0, len(defs))
		for _, def := range defs {
			out = append(out, protocol.CompletionItem{
				Label:  def.Name,
				Kind:   completionItemKindPtr(protocol.CompletionItemKindKeyword),
				Detail: ptrString(def.Signature()),
			})
		}
		return out
	}

	def, ok := code.LookupName(fs[0])
	if !ok || field > def.Arity() || def.Operands[field-1] != code.OperandLabel {
		return nil
	}
	labels := sortedLabels(doc.Program)
	out := make([]protocol.CompletionItem, 0, len(labels))
	for _, l := range labels {
		out = append(out, protocol.CompletionItem{
			Label:  l.Name,
			Kind:   completionItemKindPtr(protocol.CompletionItemKindReference),
			Detail: ptrString(fmt.Sprintf("offset %d", l.Offset)),
		})
	}
	return out
}

func completionItemKindPtr(k protocol.CompletionItemKind) *protocol.CompletionItemKind {
	return &k
}

func sortedLabels(p *asm.Program) []asm.Label {
	out := make([]asm.Label, 0, len(p.Labels))
	for _, l := range p.Labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func labelLocation(uri string, doc *Document, l asm.Label) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: doc.span(l.Line, l.Col, l.Name),
	}
}

// labelAt resolves the label defined or referenced at pos.
func labelAt(doc *Document, pos protocol.Position) (asm.Label, bool) {
	tok, ok := tokenAt(doc, pos)
	if !ok || (tok.Kind != asm.TokenLabel && tok.Kind != asm.TokenLabelRef) {
		return asm.Label{}, false
	}
	l, ok := doc.Program.Labels[tok.Text]
	return l, ok
}

func DefinitionAt(uri string, doc *Document, pos protocol.Position) []protocol.Location {
	l, ok := labelAt(doc, pos)
	if !ok {
		return nil
	}
	return []protocol.Location{labelLocation(uri, doc, l)}
}

func ReferencesAt(uri string, doc *Document, pos protocol.Position, includeDeclaration bool) []protocol.Location {
	l, ok := labelAt(doc, pos)
	if !ok {
		return nil
	}
	var out []protocol.Location
	if includeDeclaration {
		out = append(out, labelLocation(uri, doc, l))
	}
	for _, ref := range doc.Program.References(l.Name) {
		out = append(out, protocol.Location{
			URI:   protocol.DocumentUri(uri),
			Range: doc.span(ref.Line, ref.Col, ref.Text),
		})
	}
	return out
}

func RenameAt(uri string, doc *Document, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	l, ok := labelAt(doc, pos)
	if !ok {
		return nil, nil
	}
	switch {
	case newName == "" || strings.ContainsAny(newName, " \t\r\n"):
		return nil, fmt.Errorf("invalid label name %q", newName)
	case strings.HasPrefix(newName, ":") || strings.HasPrefix(newName, "#"):
		return nil, fmt.Errorf("label name cannot start with %q", newName[:1])
	}
	if _, taken := doc.Program.Labels[newName]; taken && newName != l.Name {
		return nil, fmt.Errorf("label %s already exists", newName)
	}

	locs := ReferencesAt(uri, doc, pos, true)
	edits := make([]protocol.TextEdit, 0, len(locs))
	for _, loc := range locs {
		edits = append(edits, protocol.TextEdit{Range: loc.Range, NewText: newName})
	}
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			protocol.DocumentUri(uri): edits,
		},
	}, nil
}

// DocumentSymbols lists the labels in source order.
func DocumentSymbols(doc *Document) []protocol.DocumentSymbol {
	labels := sortedLabels(doc.Program)
	out := make([]protocol.DocumentSymbol, 0, len(labels))
	for _, l := range labels {
		full := doc.span(l.Line, l.Col-1, ":"+l.Name)
		out = append(out, protocol.DocumentSymbol{
			Name:           l.Name,
			Detail:         ptrString(fmt.Sprintf("offset %d", l.Offset)),
			Kind:           protocol.SymbolKindFunction,
			Range:          full,
			SelectionRange: doc.span(l.Line, l.Col, l.Name),
		})
	}
	return out
}
