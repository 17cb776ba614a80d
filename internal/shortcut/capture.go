package shortcut

import "strings"

// pureModifierLabels are key labels produced when only a modifier is pressed.
var pureModifierLabels = map[string]struct{}{
	"Meta":    {},
	"Control": {},
	"Alt":     {},
	"Shift":   {},
}

// CaptureTokens builds [Cmd?, Ctrl?, Alt?, Shift?, MainKey?] for ev.
func CaptureTokens(ev KeyEvent) []string {
	tokens := make([]string, 0, 5)
	if ev.Meta {
		tokens = append(tokens, TokenCmd)
	}
	if ev.Ctrl {
		tokens = append(tokens, TokenCtrl)
	}
	if ev.Alt {
		tokens = append(tokens, TokenAlt)
	}
	if ev.Shift {
		tokens = append(tokens, TokenShift)
	}
	if key, ok := captureMainKey(ev.Key); ok {
		tokens = append(tokens, key)
	}
	return tokens
}

// Capture returns the canonical binding string for ev. A pure modifier
// keystroke yields a binding without a main key; callers recording a
// shortcut must reject it (see Parse(...).Complete()).
func Capture(ev KeyEvent) string {
	return Join(CaptureTokens(ev))
}

func captureMainKey(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	if _, modifierOnly := pureModifierLabels[label]; modifierOnly {
		return "", false
	}
	switch label {
	case " ":
		return KeySpace, true
	case "Escape":
		return KeyEscape, true
	case "Enter":
		return KeyEnter, true
	case Separator:
		return KeyPlus, true
	}
	return strings.ToUpper(label), true
}
