package lsp

import "sort"

// EncodeSemanticTokens produces the LSP relative encoding: five integers per
// token giving the line delta, start delta, length, type and modifier bits.
// Zero-length tokens are dropped.
func EncodeSemanticTokens(toks []SemTok) []uint32 {
	sort.SliceStable(toks, func(i, j int) bool {
		a, b := toks[i], toks[j]
		return a.Line < b.Line || a.Line == b.Line && a.Col < b.Col
	})

	data := make([]uint32, 0, 5*len(toks))
	var prev SemTok
	prev.Line, prev.Col = 1, 1
	for _, t := range toks {
		if t.Length <= 0 {
			continue
		}
		start := t.Col - 1
		if t.Line == prev.Line {
			start = t.Col - prev.Col
		}
		data = append(data, uint32(t.Line-prev.Line), uint32(start), uint32(t.Length), uint32(t.Type), uint32(t.Mods))
		prev = t
	}
	return data
}
