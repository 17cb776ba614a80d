package shortcut

import "strings"

// KeyEvent is a raw key-down as delivered by the window: the four modifier
// flags and the key label (DOM KeyboardEvent.key semantics, e.g. "a", "A",
// " ", "Enter", "Escape", "Shift").
type KeyEvent struct {
	Meta  bool   `json:"meta"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Key   string `json:"key"`
}

// Matches reports whether ev triggers binding.
//
// Modifier presence must be exact: a held modifier missing from the binding,
// or a binding modifier not held, rejects the match. A modifier-only binding
// matches on modifiers alone; a binding with more than one main key never
// matches.
func Matches(ev KeyEvent, binding string) bool {
	if binding == "" {
		return false
	}
	p := Parse(binding)
	if ev.Meta != p.Meta || ev.Ctrl != p.Ctrl || ev.Alt != p.Alt || ev.Shift != p.Shift {
		return false
	}
	switch len(p.MainKeys) {
	case 0:
		return true
	case 1:
		return mainKeyMatches(p.MainKeys[0], ev.Key)
	default:
		return false
	}
}

func mainKeyMatches(token string, label string) bool {
	got := strings.ToLower(label)
	switch strings.ToLower(token) {
	case "space":
		return got == " " || got == "space"
	case "escape", "esc":
		return got == "escape" || got == "esc"
	case "enter":
		return got == "enter"
	case "plus":
		return got == "+" || got == "plus"
	}
	return strings.EqualFold(token, label)
}
