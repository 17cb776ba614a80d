// Package keymap owns the action -> binding mapping, its persistence and the
// recording flow that lets the user rebind an action from the keyboard.
package keymap

import (
	"errors"
	"maps"
)

// Action names a user-bindable command.
type Action string

const (
	ActionToggleWindow Action = "toggle_translator_window"
	ActionPaste        Action = "paste_translation"
	ActionPin          Action = "pin_window"
	ActionOpenSettings Action = "open_settings"
	ActionHideWindow   Action = "hide_translator_window"
)

// GlobalAction is the only action mirrored to an OS-level hotkey.
const GlobalAction = ActionToggleWindow

// FallbackHideBinding is used for hide when no binding is configured.
const FallbackHideBinding = "Escape"

var (
	ErrUnknownAction     = errors.New("unknown shortcut action")
	ErrIncompleteBinding = errors.New("binding has no main key")
	ErrMalformedBinding  = errors.New("binding has more than one main key")
)

// Actions lists every known action in presentation order.
var Actions = []Action{
	ActionToggleWindow,
	ActionPaste,
	ActionPin,
	ActionOpenSettings,
	ActionHideWindow,
}

var defaultBindings = map[Action]string{
	ActionToggleWindow: "Alt+T",
	ActionPaste:        "Alt+Enter",
	ActionPin:          "Cmd+P",
	ActionOpenSettings: "Cmd+,",
	ActionHideWindow:   "Escape",
}

// DefaultBindings returns a fresh copy of the compiled-in defaults.
func DefaultBindings() map[Action]string {
	return maps.Clone(defaultBindings)
}

// Known reports whether a is a compiled-in action.
func Known(a Action) bool {
	_, ok := defaultBindings[a]
	return ok
}

// ParseAction converts a raw action name.
func ParseAction(name string) (Action, error) {
	a := Action(name)
	if !Known(a) {
		return "", ErrUnknownAction
	}
	return a, nil
}
