package hotkeys

import (
	"fmt"
	"strconv"
	"strings"

	"floatrans/internal/shortcut"
)

// ParseBinding parses a registry binding such as "Alt+T" or "Cmd+Shift+K"
// into a global hotkey. Cmd maps to the Windows key. A global hotkey needs
// at least one modifier and exactly one main key.
func ParseBinding(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("hotkey spec is empty")
	}

	tokens := shortcut.Split(raw)
	var modifiers Modifier
	var keys []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		switch shortcut.ClassifyModifier(tok) {
		case shortcut.ModMeta:
			modifiers |= modWin
		case shortcut.ModCtrl:
			modifiers |= modControl
		case shortcut.ModAlt:
			modifiers |= modAlt
		case shortcut.ModShift:
			modifiers |= modShift
		default:
			if isWinAlias(tok) {
				modifiers |= modWin
				continue
			}
			keys = append(keys, tok)
		}
	}

	switch {
	case len(keys) == 0:
		return Binding{}, fmt.Errorf("hotkey must include a key: %q", raw)
	case len(keys) > 1:
		return Binding{}, fmt.Errorf("hotkey has more than one key: %q", raw)
	case modifiers == 0:
		return Binding{}, fmt.Errorf("at least one modifier is required: %q", raw)
	}

	key, normalizedKey, err := parseKey(keys[0])
	if err != nil {
		return Binding{}, err
	}
	return Binding{
		modifiers:  modifiers,
		key:        key,
		normalized: normalize(modifiers, normalizedKey),
	}, nil
}

func isWinAlias(tok string) bool {
	switch strings.ToUpper(tok) {
	case "WIN", "SUPER":
		return true
	}
	return false
}

func parseKey(raw string) (VKey, string, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, "", fmt.Errorf("missing hotkey key token")
	}

	if key, ok := keyByName[token]; ok {
		return key, canonicalKeyName(token), nil
	}
	if len(token) == 1 {
		ch := token[0]
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			return VKey(ch), token, nil
		}
	}
	if n, ok := functionKeyNumber(token); ok {
		return vkF1 + VKey(n-1), token, nil
	}
	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, "", fmt.Errorf("invalid hex key %q", raw)
		}
		if value == 0 {
			return 0, "", fmt.Errorf("key code 0x0000 is not a valid virtual key")
		}
		return VKey(value), token, nil
	}
	return 0, "", fmt.Errorf("unknown key %q in hotkey spec", raw)
}

func functionKeyNumber(token string) (int, bool) {
	if len(token) < 2 || token[0] != 'F' {
		return 0, false
	}
	n, err := strconv.Atoi(token[1:])
	if err != nil || n < 1 || n > 24 {
		return 0, false
	}
	return n, true
}

func canonicalKeyName(token string) string {
	switch token {
	case "SPACE":
		return shortcut.KeySpace
	case "ENTER", "RETURN":
		return shortcut.KeyEnter
	case "ESC", "ESCAPE":
		return shortcut.KeyEscape
	case "PLUS":
		return shortcut.KeyPlus
	case "BACKQUOTE", "GRAVE":
		return "`"
	}
	return token
}

func normalize(mods Modifier, key string) string {
	parts := make([]string, 0, 5)
	if mods&modWin != 0 {
		parts = append(parts, shortcut.TokenCmd)
	}
	if mods&modControl != 0 {
		parts = append(parts, shortcut.TokenCtrl)
	}
	if mods&modAlt != 0 {
		parts = append(parts, shortcut.TokenAlt)
	}
	if mods&modShift != 0 {
		parts = append(parts, shortcut.TokenShift)
	}
	return shortcut.Join(append(parts, key))
}
