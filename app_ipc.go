package main

import (
	"log/slog"

	"floatrans/internal/ipc"
)

// appIPCHandler serves requests from a second instance or floatransctl.
// It runs on IPC connection goroutines.
type appIPCHandler struct {
	app *App
}

var _ ipc.Handler = appIPCHandler{}

// Show runs the same flow as the global shortcut.
func (h appIPCHandler) Show() error {
	ctx, err := h.app.requireRuntimeContext()
	if err != nil {
		return err
	}
	d, err := h.app.requireDispatcher()
	if err != nil {
		return err
	}
	slog.Debug("[ipc] show requested")
	d.HandleGlobalShortcut(ctx)
	return nil
}

// Inject replaces the input text, which schedules a translation, and then
// shows the window.
func (h appIPCHandler) Inject(text string) error {
	session, err := h.app.requireSession()
	if err != nil {
		return err
	}
	session.SetInput(text)
	slog.Debug("[ipc] inject requested", "length", len(text))
	return h.Show()
}
