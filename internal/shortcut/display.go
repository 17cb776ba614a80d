package shortcut

import "strings"

var displayGlyphs = map[string]string{
	"cmd":   "⌘",
	"shift": "⇧",
	"alt":   "⌥",
	"ctrl":  "⌃",
	"enter": "↵",
}

// Display maps each token of binding to its presentation glyph. Tokens
// without a glyph pass through unchanged. Presentation only; never feed the
// result back into Matches.
func Display(binding string) []string {
	tokens := Split(binding)
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if glyph, ok := displayGlyphs[strings.ToLower(tok)]; ok {
			out[i] = glyph
			continue
		}
		out[i] = tok
	}
	return out
}

// DisplayString joins Display(binding) without separators, e.g. "⌥↵".
func DisplayString(binding string) string {
	return strings.Join(Display(binding), "")
}
