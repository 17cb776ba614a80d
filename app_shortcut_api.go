package main

import (
	"context"

	"floatrans/internal/dispatcher"
	"floatrans/internal/keymap"
	"floatrans/internal/shortcut"
	"floatrans/internal/wsserver"
)

// ShortcutsView is the registry state plus display labels for each binding.
type ShortcutsView struct {
	keymap.State
	Display map[keymap.Action]string `json:"display"`
}

func newShortcutsView(state keymap.State) ShortcutsView {
	display := make(map[keymap.Action]string, len(state.Shortcuts))
	for action, binding := range state.Shortcuts {
		display[action] = shortcut.DisplayString(binding)
	}
	return ShortcutsView{State: state, Display: display}
}

// GetShortcuts returns the effective bindings.
func (a *App) GetShortcuts() ShortcutsView {
	registry, err := a.requireRegistry()
	if err != nil {
		return newShortcutsView(keymap.State{Shortcuts: keymap.DefaultBindings()})
	}
	return newShortcutsView(registry.Snapshot())
}

// UpdateShortcut rebinds action. A failed global hotkey sync does not fail
// the update; it is reported through the shortcuts:sync-failed event.
func (a *App) UpdateShortcut(action, binding string) error {
	registry, err := a.requireRegistry()
	if err != nil {
		return err
	}
	parsed, err := keymap.ParseAction(action)
	if err != nil {
		return err
	}
	return registry.Update(a.backgroundContext(), parsed, binding)
}

// ResetShortcuts restores the default bindings.
func (a *App) ResetShortcuts() error {
	registry, err := a.requireRegistry()
	if err != nil {
		return err
	}
	return registry.ResetToDefaults(a.backgroundContext())
}

// StartRecordingShortcut routes the next window key-downs to action.
func (a *App) StartRecordingShortcut(action string) error {
	registry, err := a.requireRegistry()
	if err != nil {
		return err
	}
	parsed, err := keymap.ParseAction(action)
	if err != nil {
		return err
	}
	return registry.StartRecording(parsed)
}

// StopRecordingShortcut ends recording without changing bindings.
func (a *App) StopRecordingShortcut() error {
	registry, err := a.requireRegistry()
	if err != nil {
		return err
	}
	registry.StopRecording()
	return nil
}

// HandleKeyDown routes a window key-down. The frontend must suppress the
// browser default when the result is handled.
func (a *App) HandleKeyDown(ev shortcut.KeyEvent) dispatcher.Result {
	ctx, err := a.requireRuntimeContext()
	if err != nil {
		return dispatcher.Result{}
	}
	d, err := a.requireDispatcher()
	if err != nil {
		return dispatcher.Result{}
	}
	return d.HandleKeyDown(ctx, ev)
}

// TogglePin flips always-on-top and returns the resulting state.
func (a *App) TogglePin() (bool, error) {
	ctx, err := a.requireRuntimeContext()
	if err != nil {
		return false, err
	}
	d, err := a.requireDispatcher()
	if err != nil {
		return false, err
	}
	return d.TogglePin(ctx)
}

// PasteTranslation copies the translation (or the input) to the clipboard,
// hides the window and clears the translator.
func (a *App) PasteTranslation() error {
	ctx, err := a.requireRuntimeContext()
	if err != nil {
		return err
	}
	d, err := a.requireDispatcher()
	if err != nil {
		return err
	}
	d.Paste(ctx)
	return nil
}

// HideWindow hides the window and clears the translator.
func (a *App) HideWindow() error {
	ctx, err := a.requireRuntimeContext()
	if err != nil {
		return err
	}
	d, err := a.requireDispatcher()
	if err != nil {
		return err
	}
	d.Hide(ctx)
	return nil
}

// OpenSettings asks the frontend to navigate to settings.
func (a *App) OpenSettings() error {
	ctx, err := a.requireRuntimeContext()
	if err != nil {
		return err
	}
	d, err := a.requireDispatcher()
	if err != nil {
		return err
	}
	d.OpenSettings(ctx)
	return nil
}

func (a *App) onShortcutsChange(state keymap.State) {
	a.stream.publish(wsserver.TopicShortcuts, newShortcutsView(state))
}

// onShortcutSyncFailure runs on the updating goroutine after the local
// binding has already changed.
func (a *App) onShortcutSyncFailure(action keymap.Action, oldBinding, newBinding string, err error) {
	runtimeLogger.Warningf(a.runtimeContext(), "global shortcut sync failed for %s (%q -> %q): %v",
		action, oldBinding, newBinding, err)
	a.emitRuntimeEvent(eventShortcutSyncFailed, shortcutSyncFailedEvent{
		Action:     string(action),
		OldBinding: oldBinding,
		NewBinding: newBinding,
		Error:      err.Error(),
	})
}

// backgroundContext is used for storage and sync calls made from bound
// methods, which carry no context of their own.
func (a *App) backgroundContext() context.Context {
	if ctx := a.runtimeContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
