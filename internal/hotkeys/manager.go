package hotkeys

import (
	"context"
	"log/slog"
)

// Sync moves the global hotkey from oldBinding to newBinding. Equal
// bindings are a no-op when newBinding is already registered. Failure to
// release the old binding is logged; failure to register the new one is
// returned and leaves no hotkey registered.
func (m *Manager) Sync(_ context.Context, oldBinding, newBinding string) error {
	if oldBinding == newBinding && m.isActive(newBinding) {
		return nil
	}
	if m.ActiveBinding() != "" {
		if err := m.Stop(); err != nil {
			slog.Warn("[hotkey] failed to release previous global hotkey",
				"binding", oldBinding, "error", err)
		}
	}
	if err := m.Start(newBinding); err != nil {
		return err
	}
	slog.Info("[hotkey] global hotkey re-registered", "old", oldBinding, "new", m.ActiveBinding())
	return nil
}

// SyncGlobalShortcut satisfies the shortcut registry's sync port.
func (m *Manager) SyncGlobalShortcut(ctx context.Context, oldBinding, newBinding string) error {
	return m.Sync(ctx, oldBinding, newBinding)
}

func (m *Manager) isActive(spec string) bool {
	b, err := ParseBinding(spec)
	if err != nil {
		return false
	}
	return m.ActiveBinding() == b.Normalized()
}
