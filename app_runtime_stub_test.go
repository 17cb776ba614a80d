package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"floatrans/internal/dispatcher"
	"floatrans/internal/keymap"
	"floatrans/internal/testutil"
	"floatrans/internal/translate"
	"floatrans/internal/translator"
)

// NOTE: Helpers in this file override package-level function variables.
// Tests that use them must not call t.Parallel().

type recordedEvent struct {
	name    string
	payload any
}

// runtimeStub records every call that would reach the Wails runtime.
type runtimeStub struct {
	mu           sync.Mutex
	events       []recordedEvent
	window       []string
	clipboard    string
	clipboardErr error
	logs         []string
}

func (s *runtimeStub) emit(_ context.Context, name string, data ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	s.events = append(s.events, recordedEvent{name: name, payload: payload})
}

func (s *runtimeStub) eventsNamed(name string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, ev := range s.events {
		if ev.name == name {
			out = append(out, ev.payload)
		}
	}
	return out
}

func (s *runtimeStub) windowCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.window...)
}

func (s *runtimeStub) recordWindow(call string) {
	s.mu.Lock()
	s.window = append(s.window, call)
	s.mu.Unlock()
}

func (s *runtimeStub) logLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logs...)
}

type stubRuntimeLogger struct{ stub *runtimeStub }

func (l stubRuntimeLogger) record(level, message string, args ...any) {
	l.stub.mu.Lock()
	l.stub.logs = append(l.stub.logs, level+": "+fmt.Sprintf(message, args...))
	l.stub.mu.Unlock()
}

func (l stubRuntimeLogger) Warningf(_ context.Context, message string, args ...any) {
	l.record("warn", message, args...)
}

func (l stubRuntimeLogger) Infof(_ context.Context, message string, args ...any) {
	l.record("info", message, args...)
}

func (l stubRuntimeLogger) Errorf(_ context.Context, message string, args ...any) {
	l.record("error", message, args...)
}

// stubRuntime replaces the Wails runtime seams for the duration of t.
func stubRuntime(t *testing.T) *runtimeStub {
	t.Helper()
	stub := &runtimeStub{}

	origEmit := runtimeEventsEmitFn
	origLogger := runtimeLogger
	origShow := runtimeWindowShowFn
	origHide := runtimeWindowHideFn
	origUnminimise := runtimeWindowUnminimiseFn
	origOnTop := runtimeWindowSetAlwaysOnTopFn
	origClipboard := runtimeClipboardSetTextFn
	t.Cleanup(func() {
		runtimeEventsEmitFn = origEmit
		runtimeLogger = origLogger
		runtimeWindowShowFn = origShow
		runtimeWindowHideFn = origHide
		runtimeWindowUnminimiseFn = origUnminimise
		runtimeWindowSetAlwaysOnTopFn = origOnTop
		runtimeClipboardSetTextFn = origClipboard
	})

	runtimeEventsEmitFn = stub.emit
	runtimeLogger = stubRuntimeLogger{stub: stub}
	runtimeWindowShowFn = func(context.Context) { stub.recordWindow("show") }
	runtimeWindowHideFn = func(context.Context) { stub.recordWindow("hide") }
	runtimeWindowUnminimiseFn = func(context.Context) { stub.recordWindow("unminimise") }
	runtimeWindowSetAlwaysOnTopFn = func(_ context.Context, b bool) {
		stub.recordWindow(fmt.Sprintf("on-top:%t", b))
	}
	runtimeClipboardSetTextFn = func(_ context.Context, text string) error {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		if stub.clipboardErr != nil {
			return stub.clipboardErr
		}
		stub.clipboard = text
		return nil
	}
	return stub
}

// newWiredTestApp returns an App with a stub-engine session, an in-memory
// registry and a dispatcher driven by clock.
func newWiredTestApp(t *testing.T) (*App, *runtimeStub, *testutil.FakeClock) {
	t.Helper()
	stub := stubRuntime(t)
	clock := testutil.NewFakeClock()

	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.session = translator.New(translator.Options{
		Translator: translate.Stub{},
		Engine:     translate.EngineStub,
		Debounce:   500 * time.Millisecond,
		AfterFunc:  clock.AfterFunc,
		OnChange:   app.onTranslatorChange,
	})
	t.Cleanup(app.session.Close)
	app.registry = keymap.New(keymap.Options{
		Store:         &keymap.MemoryStore{},
		OnSyncFailure: app.onShortcutSyncFailure,
		OnChange:      app.onShortcutsChange,
	})
	app.dispatcher = dispatcher.New(dispatcher.Options{
		Bindings:   app.registry,
		Window:     appWindow{app: app},
		Content:    app.session,
		FocusDelay: 100 * time.Millisecond,
		AfterFunc:  clock.AfterFunc,
	})
	return app, stub, clock
}
