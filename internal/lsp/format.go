package lsp

import "strings"

// FormatText normalizes layout: labels and comments start at column 1,
// instructions are indented once with single spaces between fields, and
// runs of blank lines collapse to one. The result ends in exactly one
// newline.
func FormatText(text, indent string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		fs := strings.Fields(line)
		switch {
		case len(fs) == 0:
			if len(out) > 0 {
				blank = true
			}
			continue
		case strings.HasPrefix(fs[0], "#"):
			line = strings.TrimSpace(line)
		case strings.HasPrefix(fs[0], ":"):
			line = strings.Join(fs, " ")
		default:
			line = indent + strings.Join(fs, " ")
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
