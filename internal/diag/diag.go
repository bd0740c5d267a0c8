// Package diag holds positioned diagnostics shared by the assembler, the
// command line and the language server.
package diag

import (
	"fmt"
	"sort"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

type Range struct {
	Line   int // 1-based
	Col    int // 1-based byte column
	Length int // in bytes, at least 1
}

type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

// Errorf builds an error diagnostic. A length below 1 becomes 1.
func Errorf(code string, line, col, length int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
		Range:    Range{Line: line, Col: col, Length: max(1, length)},
	}
}

func (d Diagnostic) Format(path string) string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d:%d: %s %s: %s", path, d.Range.Line, d.Range.Col, d.Severity.String(), d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, d.Range.Line, d.Range.Col, d.Severity.String(), d.Message)
}

func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sort orders ds by position, keeping the original order on ties.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Range.Line != ds[j].Range.Line {
			return ds[i].Range.Line < ds[j].Range.Line
		}
		return ds[i].Range.Col < ds[j].Range.Col
	})
}
