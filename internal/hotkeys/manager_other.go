//go:build !windows

package hotkeys

import (
	"errors"
	"log/slog"
	"sync"
)

// Manager owns one global hotkey registration. On this platform bindings
// are validated and tracked but never fire.
type Manager struct {
	onTrigger func()

	mu     sync.Mutex
	active string
}

// NewManager returns a manager that calls onTrigger when the hotkey fires.
func NewManager(onTrigger func()) *Manager {
	return &Manager{onTrigger: onTrigger}
}

// Start validates spec and records it as the active binding.
func (m *Manager) Start(spec string) error {
	if m.onTrigger == nil {
		return errors.New("onTrigger callback is required")
	}
	binding, err := ParseBinding(spec)
	if err != nil {
		return err
	}

	slog.Warn("[hotkey] global hotkeys are not supported on this platform; binding validated but will never fire",
		"binding", binding.Normalized())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = binding.Normalized()
	return nil
}

// Stop releases the active hotkey.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = ""
	return nil
}

// ActiveBinding returns the normalized active binding, or "".
func (m *Manager) ActiveBinding() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
