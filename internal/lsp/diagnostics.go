package lsp

import (
	"bci/internal/diag"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var severities = map[diag.Severity]protocol.DiagnosticSeverity{
	diag.SeverityError:   protocol.DiagnosticSeverityError,
	diag.SeverityWarning: protocol.DiagnosticSeverityWarning,
	diag.SeverityInfo:    protocol.DiagnosticSeverityInformation,
}

// Diagnostics reports every assembler problem in doc. Byte ranges become
// UTF-16 ranges over the covered text.
func Diagnostics(doc *Document) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(doc.Program.Diagnostics))
	for _, d := range doc.Program.Diagnostics {
		covered := ""
		if lineText, ok := doc.line(d.Range.Line); ok {
			start := min(max(d.Range.Col-1, 0), len(lineText))
			covered = lineText[start:min(start+d.Range.Length, len(lineText))]
		}

		severity := severities[d.Severity]
		pd := protocol.Diagnostic{
			Range:    doc.span(d.Range.Line, d.Range.Col, covered),
			Severity: &severity,
			Source:   ptrString("bci"),
			Message:  d.Message,
		}
		if d.Code != "" {
			pd.Code = &protocol.IntegerOrString{Value: d.Code}
		}
		out = append(out, pd)
	}
	return out
}

func ptrString(s string) *string { return &s }
