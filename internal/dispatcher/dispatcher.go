// Package dispatcher routes global-shortcut signals and window key-downs to
// window control and translator actions.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"floatrans/internal/keymap"
	"floatrans/internal/shortcut"
)

// DefaultFocusDelay lets the window finish showing before the input is
// focused.
const DefaultFocusDelay = 100 * time.Millisecond

// Window is the window-control surface.
type Window interface {
	ShowWindow(ctx context.Context) error
	HideWindow(ctx context.Context) error
	SetPinned(ctx context.Context, pinned bool) error
	PasteText(ctx context.Context, text string) error
	OpenSettings(ctx context.Context) error
	FocusInput(ctx context.Context) error
}

// Content is the translator state the dispatcher reads and clears.
type Content interface {
	PasteContent() string
	Clear()
}

// SettingsRefresher reloads user settings before the window is shown.
type SettingsRefresher interface {
	RefreshSettings(ctx context.Context) error
}

// Bindings is the registry surface the dispatcher needs.
type Bindings interface {
	Get(action keymap.Action) string
	HandleRecordingKey(ctx context.Context, ev shortcut.KeyEvent) (bool, error)
}

// Options wires a Dispatcher. Settings is optional.
type Options struct {
	Bindings   Bindings
	Window     Window
	Content    Content
	Settings   SettingsRefresher
	FocusDelay time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
}

// Result reports how a key-down was handled. When Handled is true the
// caller must stop the event from propagating.
type Result struct {
	Handled   bool          `json:"handled"`
	Recording bool          `json:"recording"`
	Action    keymap.Action `json:"action,omitempty"`
}

// localOrder is the match priority for window key-downs.
var localOrder = []keymap.Action{
	keymap.ActionPaste,
	keymap.ActionPin,
	keymap.ActionOpenSettings,
	keymap.ActionHideWindow,
}

type Dispatcher struct {
	bindings   Bindings
	window     Window
	content    Content
	settings   SettingsRefresher
	focusDelay time.Duration
	afterFunc  func(time.Duration, func()) func() bool

	mu         sync.Mutex
	pinned     bool
	stopFocus  func() bool
	focusArmed uint64
	closed     bool
}

func New(opts Options) *Dispatcher {
	if opts.FocusDelay <= 0 {
		opts.FocusDelay = DefaultFocusDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	return &Dispatcher{
		bindings:   opts.Bindings,
		window:     opts.Window,
		content:    opts.Content,
		settings:   opts.Settings,
		focusDelay: opts.FocusDelay,
		afterFunc:  opts.AfterFunc,
	}
}

// HandleGlobalShortcut runs when the OS-level hotkey fires: refresh
// settings, show the window, then focus the input after the focus delay.
// Failures are logged; the flow continues.
func (d *Dispatcher) HandleGlobalShortcut(ctx context.Context) {
	if d.isClosed() {
		slog.Debug("[DEBUG-DISPATCH] global shortcut ignored after close")
		return
	}
	if d.settings != nil {
		if err := d.settings.RefreshSettings(ctx); err != nil {
			slog.Warn("[WARN-DISPATCH] settings refresh failed", "error", err)
		}
	}
	if err := d.window.ShowWindow(ctx); err != nil {
		slog.Warn("[WARN-DISPATCH] show window failed", "error", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.stopFocus != nil {
		d.stopFocus()
	}
	d.focusArmed++
	armed := d.focusArmed
	d.stopFocus = d.afterFunc(d.focusDelay, func() {
		d.mu.Lock()
		current := armed == d.focusArmed && !d.closed
		if current {
			d.stopFocus = nil
		}
		d.mu.Unlock()
		if !current {
			return
		}
		if err := d.window.FocusInput(ctx); err != nil {
			slog.Warn("[WARN-DISPATCH] focus input failed", "error", err)
		}
	})
}

// HandleKeyDown routes a window key-down. An active recording captures
// every key first; otherwise the first matching action in priority order
// wins.
func (d *Dispatcher) HandleKeyDown(ctx context.Context, ev shortcut.KeyEvent) Result {
	handled, err := d.bindings.HandleRecordingKey(ctx, ev)
	if err != nil {
		slog.Warn("[WARN-DISPATCH] recording update failed", "error", err)
	}
	if handled {
		return Result{Handled: true, Recording: true}
	}

	for _, action := range localOrder {
		binding := d.bindings.Get(action)
		if action == keymap.ActionHideWindow && binding == "" {
			binding = keymap.FallbackHideBinding
		}
		if !shortcut.Matches(ev, binding) {
			continue
		}
		slog.Debug("[DEBUG-DISPATCH] key matched", "action", action, "binding", binding)
		d.run(ctx, action)
		return Result{Handled: true, Action: action}
	}
	return Result{}
}

func (d *Dispatcher) run(ctx context.Context, action keymap.Action) {
	switch action {
	case keymap.ActionPaste:
		d.Paste(ctx)
	case keymap.ActionPin:
		_, _ = d.TogglePin(ctx)
	case keymap.ActionOpenSettings:
		d.OpenSettings(ctx)
	case keymap.ActionHideWindow:
		d.Hide(ctx)
	}
}

// Paste sends the translation (or the raw input when there is none) to the
// window and clears the translator. Empty content is a no-op.
func (d *Dispatcher) Paste(ctx context.Context) {
	text := d.content.PasteContent()
	if text == "" {
		slog.Debug("[DEBUG-DISPATCH] paste skipped, nothing to paste")
		return
	}
	if err := d.window.PasteText(ctx, text); err != nil {
		slog.Warn("[WARN-DISPATCH] paste failed", "error", err)
	}
	d.content.Clear()
}

// Hide hides the window and clears the translator.
func (d *Dispatcher) Hide(ctx context.Context) {
	if err := d.window.HideWindow(ctx); err != nil {
		slog.Warn("[WARN-DISPATCH] hide window failed", "error", err)
	}
	d.content.Clear()
}

// OpenSettings asks the window to navigate to settings.
func (d *Dispatcher) OpenSettings(ctx context.Context) {
	if err := d.window.OpenSettings(ctx); err != nil {
		slog.Warn("[WARN-DISPATCH] open settings failed", "error", err)
	}
}

// TogglePin flips the pin flag optimistically and confirms it with the
// window. On failure the flag is restored, unless a later toggle has
// already replaced it. It returns the resulting flag.
func (d *Dispatcher) TogglePin(ctx context.Context) (bool, error) {
	d.mu.Lock()
	prev := d.pinned
	next := !prev
	d.pinned = next
	d.mu.Unlock()

	if err := d.window.SetPinned(ctx, next); err != nil {
		d.mu.Lock()
		if d.pinned == next {
			d.pinned = prev
		}
		current := d.pinned
		d.mu.Unlock()
		slog.Warn("[WARN-DISPATCH] set pinned failed, rolled back", "pinned", next, "error", err)
		return current, err
	}
	return next, nil
}

// Pinned reports the local pin flag.
func (d *Dispatcher) Pinned() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pinned
}

// Close stops a pending focus and ignores later global shortcut signals.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.stopFocus != nil {
		d.stopFocus()
		d.stopFocus = nil
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
