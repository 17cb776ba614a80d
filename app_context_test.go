package main

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRequireRuntimeContextLifecycle(t *testing.T) {
	app := NewApp()
	if _, err := app.requireRuntimeContext(); !errors.Is(err, errRuntimeNotReady) {
		t.Fatalf("requireRuntimeContext() before startup error = %v, want errRuntimeNotReady", err)
	}

	want := context.Background()
	app.setRuntimeContext(want)
	got, err := app.requireRuntimeContext()
	if err != nil {
		t.Fatalf("requireRuntimeContext() error = %v", err)
	}
	if got != want {
		t.Fatalf("requireRuntimeContext() = %v, want %v", got, want)
	}

	app.setRuntimeContext(nil)
	if _, err := app.requireRuntimeContext(); !errors.Is(err, errRuntimeNotReady) {
		t.Fatalf("requireRuntimeContext() after shutdown error = %v, want errRuntimeNotReady", err)
	}
}

func TestComponentGuardsBeforeStartup(t *testing.T) {
	app := NewApp()

	if _, err := app.requireSession(); err == nil {
		t.Fatal("requireSession() should fail before startup")
	}
	if _, err := app.requireRegistry(); err == nil {
		t.Fatal("requireRegistry() should fail before startup")
	}
	if _, err := app.requireDispatcher(); err == nil {
		t.Fatal("requireDispatcher() should fail before startup")
	}
}

func TestComponentGuardsAfterWiring(t *testing.T) {
	app, _, _ := newWiredTestApp(t)

	if s, err := app.requireSession(); err != nil || s != app.session {
		t.Fatalf("requireSession() = (%p, %v), want wired session", s, err)
	}
	if r, err := app.requireRegistry(); err != nil || r != app.registry {
		t.Fatalf("requireRegistry() = (%p, %v), want wired registry", r, err)
	}
	if d, err := app.requireDispatcher(); err != nil || d != app.dispatcher {
		t.Fatalf("requireDispatcher() = (%p, %v), want wired dispatcher", d, err)
	}
}

// Hotkey callbacks and IPC requests read the context while startup and
// shutdown swap it.
func TestRuntimeContextSwapUnderReaders(t *testing.T) {
	app := NewApp()
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range 4 {
		wg.Go(func() {
			<-start
			for j := range 100 {
				if (i+j)%2 == 0 {
					app.setRuntimeContext(ctx)
				} else {
					app.setRuntimeContext(nil)
				}
			}
		})
		wg.Go(func() {
			<-start
			for range 100 {
				if got, err := app.requireRuntimeContext(); err == nil && got != ctx {
					t.Errorf("requireRuntimeContext() = %v, want the only context ever set", got)
					return
				}
			}
		})
	}
	close(start)
	wg.Wait()
}
