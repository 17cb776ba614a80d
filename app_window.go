package main

import (
	"context"
	"fmt"
)

type pinnedEvent struct {
	Pinned bool `json:"pinned"`
}

func (a *App) setWindowVisible(visible bool) {
	a.windowMu.Lock()
	a.windowVisible = visible
	a.windowMu.Unlock()
}

// IsWindowVisible reports whether the translator window was last shown.
func (a *App) IsWindowVisible() bool {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	return a.windowVisible
}

// appWindow implements dispatcher.Window on top of the Wails runtime.
// It is kept off App so the ctx-taking methods are not bound to the
// frontend.
type appWindow struct {
	app *App
}

// ShowWindow shows and raises the window. When the window is not pinned an
// always-on-top pulse brings it above the foreground application.
func (w appWindow) ShowWindow(ctx context.Context) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	if !w.pinned() {
		runtimeWindowSetAlwaysOnTopFn(ctx, true)
		runtimeWindowSetAlwaysOnTopFn(ctx, false)
	}
	w.app.setWindowVisible(true)
	return nil
}

func (w appWindow) HideWindow(ctx context.Context) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	runtimeWindowHideFn(ctx)
	w.app.setWindowVisible(false)
	return nil
}

func (w appWindow) SetPinned(ctx context.Context, pinned bool) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	runtimeWindowSetAlwaysOnTopFn(ctx, pinned)
	w.app.emitRuntimeEventWithContext(ctx, eventWindowPinned, pinnedEvent{Pinned: pinned})
	return nil
}

// PasteText puts text on the clipboard and hides the window so the
// previous application regains focus. Empty text is a no-op; whitespace is
// pasted as-is.
func (w appWindow) PasteText(ctx context.Context, text string) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	if text == "" {
		return nil
	}
	if err := runtimeClipboardSetTextFn(ctx, text); err != nil {
		return fmt.Errorf("set clipboard text: %w", err)
	}
	return w.HideWindow(ctx)
}

func (w appWindow) OpenSettings(ctx context.Context) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	w.app.emitRuntimeEventWithContext(ctx, eventOpenSettings, nil)
	return nil
}

func (w appWindow) FocusInput(ctx context.Context) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	w.app.emitRuntimeEventWithContext(ctx, eventFocusInput, nil)
	return nil
}

func (w appWindow) pinned() bool {
	d, err := w.app.requireDispatcher()
	return err == nil && d.Pinned()
}
