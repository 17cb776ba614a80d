package main

import (
	"context"
	"log/slog"
)

// Runtime event names emitted to the frontend.
const (
	eventTranslatorState    = "translator:state"
	eventFocusInput         = "translator:focus-input"
	eventShortcutsState     = "shortcuts:state"
	eventShortcutSyncFailed = "shortcuts:sync-failed"
	eventWindowPinned       = "window:pinned"
	eventOpenSettings       = "app:open-settings"
	eventWorkerPanic        = "app:worker-panic"
	eventErrorLogUpdated    = "app:error-log-updated"
	eventConfigLoadFailed   = "config:load-failed"
	eventConfigUpdated      = "config:updated"
)

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
// Prefer this helper for best-effort contexts that may not be initialized yet.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Debug("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

type shortcutSyncFailedEvent struct {
	Action     string `json:"action"`
	OldBinding string `json:"oldBinding"`
	NewBinding string `json:"newBinding"`
	Error      string `json:"error"`
}

type workerPanicEvent struct {
	Worker  string `json:"worker"`
	Attempt int    `json:"attempt"`
}
