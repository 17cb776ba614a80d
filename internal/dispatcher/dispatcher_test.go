package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"floatrans/internal/keymap"
	"floatrans/internal/shortcut"
	"floatrans/internal/testutil"
)

type fakeWindow struct {
	mu        sync.Mutex
	calls     []string
	pinErr    error
	showErr   error
	pasteErr  error
	pinnedSet []bool
}

func (w *fakeWindow) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWindow) recorded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.calls)
}

func (w *fakeWindow) ShowWindow(context.Context) error {
	w.record("show")
	return w.showErr
}

func (w *fakeWindow) HideWindow(context.Context) error {
	w.record("hide")
	return nil
}

func (w *fakeWindow) SetPinned(_ context.Context, pinned bool) error {
	w.record(fmt.Sprintf("pin:%v", pinned))
	w.mu.Lock()
	w.pinnedSet = append(w.pinnedSet, pinned)
	w.mu.Unlock()
	return w.pinErr
}

func (w *fakeWindow) PasteText(_ context.Context, text string) error {
	w.record("paste:" + text)
	return w.pasteErr
}

func (w *fakeWindow) OpenSettings(context.Context) error {
	w.record("settings")
	return nil
}

func (w *fakeWindow) FocusInput(context.Context) error {
	w.record("focus")
	return nil
}

type fakeContent struct {
	input, translated string
	clears            int
}

func (c *fakeContent) PasteContent() string {
	if c.translated != "" {
		return c.translated
	}
	return c.input
}

func (c *fakeContent) Clear() {
	c.input, c.translated = "", ""
	c.clears++
}

type fakeRefresher struct {
	window *fakeWindow
	err    error
}

func (r *fakeRefresher) RefreshSettings(context.Context) error {
	r.window.record("refresh")
	return r.err
}

type fixture struct {
	d        *Dispatcher
	window   *fakeWindow
	content  *fakeContent
	registry *keymap.Registry
	clock    *testutil.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		window:   &fakeWindow{},
		content:  &fakeContent{},
		registry: keymap.New(keymap.Options{Store: &keymap.MemoryStore{}}),
		clock:    testutil.NewFakeClock(),
	}
	f.d = New(Options{
		Bindings:  f.registry,
		Window:    f.window,
		Content:   f.content,
		Settings:  &fakeRefresher{window: f.window},
		AfterFunc: f.clock.AfterFunc,
	})
	t.Cleanup(f.d.Close)
	return f
}

func TestGlobalShortcutRefreshShowThenFocus(t *testing.T) {
	f := newFixture(t)

	f.d.HandleGlobalShortcut(context.Background())
	if got := f.window.recorded(); !slices.Equal(got, []string{"refresh", "show"}) {
		t.Fatalf("calls before delay = %v", got)
	}
	f.clock.Advance(DefaultFocusDelay - time.Millisecond)
	if slices.Contains(f.window.recorded(), "focus") {
		t.Fatal("focused before delay elapsed")
	}
	f.clock.Advance(time.Millisecond)
	if got := f.window.recorded(); !slices.Equal(got, []string{"refresh", "show", "focus"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestGlobalShortcutContinuesAfterFailures(t *testing.T) {
	window := &fakeWindow{showErr: errors.New("no window")}
	clock := testutil.NewFakeClock()
	d := New(Options{
		Bindings:  keymap.New(keymap.Options{}),
		Window:    window,
		Content:   &fakeContent{},
		Settings:  &fakeRefresher{window: window, err: errors.New("config locked")},
		AfterFunc: clock.AfterFunc,
	})
	defer d.Close()

	d.HandleGlobalShortcut(context.Background())
	clock.Advance(DefaultFocusDelay)
	if got := window.recorded(); !slices.Equal(got, []string{"refresh", "show", "focus"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestGlobalShortcutRepeatedFocusesOnce(t *testing.T) {
	f := newFixture(t)
	f.d.HandleGlobalShortcut(context.Background())
	f.clock.Advance(50 * time.Millisecond)
	f.d.HandleGlobalShortcut(context.Background())
	f.clock.Advance(time.Second)

	focuses := 0
	for _, c := range f.window.recorded() {
		if c == "focus" {
			focuses++
		}
	}
	if focuses != 1 {
		t.Fatalf("focus calls = %d, want 1", focuses)
	}
}

func TestCloseCancelsFocusAndIgnoresSignals(t *testing.T) {
	f := newFixture(t)
	f.d.HandleGlobalShortcut(context.Background())
	f.d.Close()
	f.clock.Advance(time.Second)
	f.d.HandleGlobalShortcut(context.Background())

	if got := f.window.recorded(); !slices.Equal(got, []string{"refresh", "show"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestHandleKeyDownRouting(t *testing.T) {
	tests := []struct {
		name       string
		ev         shortcut.KeyEvent
		wantAction keymap.Action
		wantCalls  []string
		wantClears int
	}{
		{
			name:       "paste",
			ev:         shortcut.KeyEvent{Alt: true, Key: "Enter"},
			wantAction: keymap.ActionPaste,
			wantCalls:  []string{"paste:hola"},
			wantClears: 1,
		},
		{
			name:       "pin",
			ev:         shortcut.KeyEvent{Meta: true, Key: "p"},
			wantAction: keymap.ActionPin,
			wantCalls:  []string{"pin:true"},
		},
		{
			name:       "settings",
			ev:         shortcut.KeyEvent{Meta: true, Key: ","},
			wantAction: keymap.ActionOpenSettings,
			wantCalls:  []string{"settings"},
		},
		{
			name:       "hide",
			ev:         shortcut.KeyEvent{Key: "Escape"},
			wantAction: keymap.ActionHideWindow,
			wantCalls:  []string{"hide"},
			wantClears: 1,
		},
		{
			name: "unbound key passes through",
			ev:   shortcut.KeyEvent{Key: "a"},
		},
		{
			name: "extra modifier passes through",
			ev:   shortcut.KeyEvent{Alt: true, Shift: true, Key: "Enter"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.content.input = "hello"
			f.content.translated = "hola"

			got := f.d.HandleKeyDown(context.Background(), tt.ev)
			if got.Handled != (tt.wantAction != "") || got.Action != tt.wantAction {
				t.Fatalf("HandleKeyDown() = %+v, want action %q", got, tt.wantAction)
			}
			if calls := f.window.recorded(); !slices.Equal(calls, tt.wantCalls) {
				t.Fatalf("window calls = %v, want %v", calls, tt.wantCalls)
			}
			if f.content.clears != tt.wantClears {
				t.Fatalf("clears = %d, want %d", f.content.clears, tt.wantClears)
			}
		})
	}
}

func TestPriorityFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.registry.Update(ctx, keymap.ActionHideWindow, "Alt+Enter"); err != nil {
		t.Fatal(err)
	}
	f.content.translated = "x"

	got := f.d.HandleKeyDown(ctx, shortcut.KeyEvent{Alt: true, Key: "Enter"})
	if got.Action != keymap.ActionPaste {
		t.Fatalf("Action = %q, want paste (higher priority)", got.Action)
	}
	if slices.Contains(f.window.recorded(), "hide") {
		t.Fatal("lower-priority hide also ran")
	}
}

type emptyHideBindings struct {
	*keymap.Registry
}

func (b emptyHideBindings) Get(action keymap.Action) string {
	if action == keymap.ActionHideWindow {
		return ""
	}
	return b.Registry.Get(action)
}

func TestHideFallsBackToEscape(t *testing.T) {
	window := &fakeWindow{}
	d := New(Options{
		Bindings: emptyHideBindings{keymap.New(keymap.Options{})},
		Window:   window,
		Content:  &fakeContent{},
	})
	defer d.Close()

	got := d.HandleKeyDown(context.Background(), shortcut.KeyEvent{Key: "Esc"})
	if got.Action != keymap.ActionHideWindow {
		t.Fatalf("Action = %q, want hide via Escape fallback", got.Action)
	}
}

func TestPasteUsesInputWhenNoTranslation(t *testing.T) {
	f := newFixture(t)
	f.content.input = "raw text"
	f.d.Paste(context.Background())
	if got := f.window.recorded(); !slices.Equal(got, []string{"paste:raw text"}) {
		t.Fatalf("calls = %v", got)
	}
	if f.content.clears != 1 {
		t.Fatalf("clears = %d, want 1", f.content.clears)
	}
}

func TestPasteEmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	got := f.d.HandleKeyDown(context.Background(), shortcut.KeyEvent{Alt: true, Key: "Enter"})
	if !got.Handled {
		t.Fatal("matched paste should still be handled")
	}
	if calls := f.window.recorded(); len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
	if f.content.clears != 0 {
		t.Fatalf("clears = %d, want 0", f.content.clears)
	}
}

func TestRecordingInterceptsBeforeActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.registry.StartRecording(keymap.ActionPin); err != nil {
		t.Fatal(err)
	}

	got := f.d.HandleKeyDown(ctx, shortcut.KeyEvent{Shift: true, Key: "Shift"})
	if !got.Handled || !got.Recording {
		t.Fatalf("modifier during recording = %+v", got)
	}
	// Alt+Enter is the paste binding; recording must take it instead.
	got = f.d.HandleKeyDown(ctx, shortcut.KeyEvent{Alt: true, Key: "Enter"})
	if !got.Handled || !got.Recording || got.Action != "" {
		t.Fatalf("capture during recording = %+v", got)
	}
	if calls := f.window.recorded(); len(calls) != 0 {
		t.Fatalf("window calls during recording = %v", calls)
	}
	if b := f.registry.Get(keymap.ActionPin); b != "Alt+Enter" {
		t.Fatalf("pin binding = %q, want Alt+Enter", b)
	}
	if _, recording := f.registry.Recording(); recording {
		t.Fatal("recording not stopped")
	}
}

func TestTogglePinSaga(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pinned, err := f.d.TogglePin(ctx)
	if err != nil || !pinned || !f.d.Pinned() {
		t.Fatalf("TogglePin() = (%v, %v), Pinned() = %v", pinned, err, f.d.Pinned())
	}

	f.window.pinErr = errors.New("compositor refused")
	pinned, err = f.d.TogglePin(ctx)
	if err == nil {
		t.Fatal("TogglePin() expected error")
	}
	if !pinned || !f.d.Pinned() {
		t.Fatalf("after failed unpin = (%v, Pinned=%v), want rolled back to true", pinned, f.d.Pinned())
	}
	if !slices.Equal(f.window.pinnedSet, []bool{true, false}) {
		t.Fatalf("SetPinned calls = %v", f.window.pinnedSet)
	}
}

type gatedPinWindow struct {
	fakeWindow
	gates map[bool]chan error
}

func (w *gatedPinWindow) SetPinned(ctx context.Context, pinned bool) error {
	_ = w.fakeWindow.SetPinned(ctx, pinned)
	return <-w.gates[pinned]
}

func TestTogglePinRollbackKeepsLaterToggle(t *testing.T) {
	window := &gatedPinWindow{gates: map[bool]chan error{
		true:  make(chan error),
		false: make(chan error),
	}}
	d := New(Options{Bindings: keymap.New(keymap.Options{}), Window: window, Content: &fakeContent{}})
	defer d.Close()
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := d.TogglePin(ctx)
		firstDone <- err
	}()
	testutil.Eventually(t, time.Second, func() bool { return d.Pinned() }, "first toggle applied")

	secondDone := make(chan error, 1)
	go func() {
		_, err := d.TogglePin(ctx)
		secondDone <- err
	}()
	testutil.Eventually(t, time.Second, func() bool { return !d.Pinned() }, "second toggle applied")

	// Confirm the second and fail the first: the first must not clobber it.
	window.gates[false] <- nil
	window.gates[true] <- errors.New("late failure")
	errs := []error{testutil.Receive(t, firstDone, time.Second), testutil.Receive(t, secondDone, time.Second)}
	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("errors = %v, want exactly one failure", errs)
	}
	if d.Pinned() {
		t.Fatal("stale rollback overwrote the later toggle")
	}
}
