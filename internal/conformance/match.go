package conformance

import (
	"fmt"
	"strings"
)

type MatchMode int

const (
	MatchNone MatchMode = iota
	MatchExact
	MatchContains
)

type Expectation struct {
	Mode  MatchMode
	Value string
}

func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Match compares got against exp. The reason is empty when it matches.
func Match(what, got string, exp Expectation) (bool, string) {
	normalizedGot := NormalizeNewlines(got)
	switch exp.Mode {
	case MatchNone:
		return true, ""
	case MatchExact:
		want := NormalizeNewlines(exp.Value)
		if normalizedGot != want {
			return false, fmt.Sprintf("%s mismatch: expected %q, got %q", what, want, normalizedGot)
		}
		return true, ""
	case MatchContains:
		want := NormalizeNewlines(exp.Value)
		if !strings.Contains(normalizedGot, want) {
			return false, fmt.Sprintf("%s mismatch: expected to contain %q, got %q", what, want, normalizedGot)
		}
		return true, ""
	default:
		return false, "unknown expectation"
	}
}
