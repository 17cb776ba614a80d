// Package shortcut maps raw key-press events to canonical binding strings
// and back. Everything here is pure: no state, no I/O.
package shortcut

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Separator joins tokens inside a binding string ("Cmd+Shift+K").
const Separator = "+"

// Canonical modifier tokens, in capture order.
const (
	TokenCmd   = "Cmd"
	TokenCtrl  = "Ctrl"
	TokenAlt   = "Alt"
	TokenShift = "Shift"
)

// Canonical names for main keys whose event label is not printable or
// collides with the separator.
const (
	KeySpace  = "Space"
	KeyEscape = "Escape"
	KeyEnter  = "Enter"
	KeyPlus   = "Plus"
)

// Modifier classifies a modifier token.
type Modifier int

const (
	ModNone Modifier = iota
	ModMeta
	ModCtrl
	ModAlt
	ModShift
)

var modifierAliases = map[string]Modifier{
	"cmd":     ModMeta,
	"command": ModMeta,
	"meta":    ModMeta,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
}

// ClassifyModifier reports which modifier class token belongs to.
// Non-modifier tokens return ModNone.
func ClassifyModifier(token string) Modifier {
	return modifierAliases[strings.ToLower(token)]
}

// IsModifierToken reports whether token is any modifier alias.
func IsModifierToken(token string) bool {
	return ClassifyModifier(token) != ModNone
}

// Split breaks a binding string into its raw tokens. An empty binding has no
// tokens.
func Split(binding string) []string {
	if binding == "" {
		return nil
	}
	return strings.Split(binding, Separator)
}

// Join is the inverse of Split.
func Join(tokens []string) string {
	return strings.Join(tokens, Separator)
}

// Parsed is the classified form of a binding string.
type Parsed struct {
	Meta, Ctrl, Alt, Shift bool
	// MainKeys holds every non-modifier token in binding order. A well-formed
	// binding has at most one.
	MainKeys []string
}

// Parse classifies the tokens of binding.
func Parse(binding string) Parsed {
	tokens := Split(binding)
	var p Parsed
	for _, tok := range tokens {
		switch ClassifyModifier(tok) {
		case ModMeta:
			p.Meta = true
		case ModCtrl:
			p.Ctrl = true
		case ModAlt:
			p.Alt = true
		case ModShift:
			p.Shift = true
		}
	}
	p.MainKeys = lo.Filter(tokens, func(tok string, _ int) bool {
		return !IsModifierToken(tok)
	})
	return p
}

// MainKey returns the single main key, or "" when there is none or more than one.
func (p Parsed) MainKey() string {
	if len(p.MainKeys) != 1 {
		return ""
	}
	return p.MainKeys[0]
}

// Complete reports whether the binding carries exactly one main key, the
// only shape that may be persisted.
func (p Parsed) Complete() bool {
	return len(p.MainKeys) == 1
}

// Canonical rewrites binding into capture order with canonical modifier
// names and duplicates removed. Main keys are spelled the way Capture
// produces them.
func Canonical(binding string) string {
	p := Parse(binding)
	tokens := make([]string, 0, 5)
	if p.Meta {
		tokens = append(tokens, TokenCmd)
	}
	if p.Ctrl {
		tokens = append(tokens, TokenCtrl)
	}
	if p.Alt {
		tokens = append(tokens, TokenAlt)
	}
	if p.Shift {
		tokens = append(tokens, TokenShift)
	}
	tokens = append(tokens, lo.Uniq(lo.Map(p.MainKeys, func(tok string, _ int) string {
		return canonicalMainKey(tok)
	}))...)
	return Join(tokens)
}

func canonicalMainKey(token string) string {
	switch strings.ToLower(token) {
	case "space", " ":
		return KeySpace
	case "escape", "esc":
		return KeyEscape
	case "enter":
		return KeyEnter
	case "plus":
		return KeyPlus
	}
	if utf8.RuneCountInString(token) == 1 {
		return strings.ToUpper(token)
	}
	return token
}
