package main

import (
	"log/slog"
	"os"
	"time"

	"floatrans/internal/sessionlog"
)

const errorLogEmitMinInterval = 50 * time.Millisecond

// installErrorLogCapture routes Warn and Error records into the app error
// log in addition to stderr.
func (a *App) installErrorLogCapture() {
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, a.recordLogEntry)))
}

// recordLogEntry runs inside the slog handler; it must not log at Warn or
// above.
//
// The app:error-log-updated event carries no payload. The frontend fetches
// GetErrorLog on receipt, so throttled pings lose nothing.
func (a *App) recordLogEntry(entry sessionlog.Entry) {
	a.errorLog.Append(entry)

	now := time.Now().UnixNano()
	last := a.errorLogLastEmit.Load()
	if now-last < int64(errorLogEmitMinInterval) || !a.errorLogLastEmit.CompareAndSwap(last, now) {
		return
	}
	a.emitRuntimeEvent(eventErrorLogUpdated, nil)
}

// GetErrorLog returns the captured warnings and errors, oldest first.
func (a *App) GetErrorLog() []sessionlog.Entry {
	return a.errorLog.Entries()
}

// ClearErrorLog drops the captured entries.
func (a *App) ClearErrorLog() {
	a.errorLog.Clear()
}
