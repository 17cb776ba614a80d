package keymap

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"floatrans/internal/shortcut"
)

// GlobalSyncer re-registers the OS-level hotkey when the global binding
// changes.
type GlobalSyncer interface {
	SyncGlobalShortcut(ctx context.Context, oldBinding, newBinding string) error
}

// SyncFailureFunc observes a failed global sync. The local update has
// already been applied when it is called.
type SyncFailureFunc func(action Action, oldBinding, newBinding string, err error)

// State is a point-in-time copy of the registry.
type State struct {
	Shortcuts       map[Action]string `json:"shortcuts"`
	IsRecording     bool              `json:"isRecording"`
	RecordingAction Action            `json:"recordingAction,omitempty"`
	Version         uint64            `json:"version"`
}

// Options configures a Registry. Every field is optional.
type Options struct {
	Store         Store
	Syncer        GlobalSyncer
	OnSyncFailure SyncFailureFunc
	// OnChange receives a snapshot after every mutation, outside any lock.
	OnChange func(State)
}

// Registry maps actions to bindings.
//
// Lock order: writeMu -> mu. writeMu serializes mutations across the slow
// sync and persist calls; mu guards the in-memory state so readers never
// wait on I/O.
type Registry struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	bindings  map[Action]string
	extras    map[string]string
	recording Action
	version   uint64

	store         Store
	syncer        GlobalSyncer
	onSyncFailure SyncFailureFunc
	onChange      func(State)
}

// New returns a registry holding the compiled-in defaults. Call Load to
// merge persisted bindings.
func New(opts Options) *Registry {
	return &Registry{
		bindings:      DefaultBindings(),
		extras:        map[string]string{},
		store:         opts.Store,
		syncer:        opts.Syncer,
		onSyncFailure: opts.OnSyncFailure,
		onChange:      opts.OnChange,
	}
}

// Load merges the persisted document over the defaults key by key.
// Persisted entries win; actions missing from the document keep their
// default. A persisted binding that could never have been saved (no main
// key) is ignored.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	doc, err := r.store.Load(ctx)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	effective, extras := Merge(DefaultBindings(), doc.Shortcuts)

	r.mu.Lock()
	r.bindings = effective
	r.extras = extras
	r.version++
	r.mu.Unlock()

	slog.Debug("[DEBUG-KEYMAP] shortcut document loaded",
		"persisted", len(doc.Shortcuts), "unknownKeys", len(extras))
	r.notify()
	return nil
}

// Merge applies persisted over defaults and returns the effective mapping
// plus persisted keys this build does not know.
func Merge(defaults map[Action]string, persisted map[string]string) (map[Action]string, map[string]string) {
	effective := maps.Clone(defaults)
	if effective == nil {
		effective = map[Action]string{}
	}
	extras := map[string]string{}
	for key, binding := range persisted {
		action := Action(key)
		if _, ok := defaults[action]; !ok {
			extras[key] = binding
			continue
		}
		if err := validateBinding(binding); err != nil {
			slog.Warn("[WARN-KEYMAP] persisted binding ignored",
				"action", key, "binding", binding, "error", err)
			continue
		}
		effective[action] = binding
	}
	return effective, extras
}

// Get returns the binding for action, or "" for an unknown action.
func (r *Registry) Get(action Action) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[action]
}

// Bindings returns a copy of the full mapping.
func (r *Registry) Bindings() map[Action]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.bindings)
}

// Snapshot returns the full registry state.
func (r *Registry) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() State {
	return State{
		Shortcuts:       maps.Clone(r.bindings),
		IsRecording:     r.recording != "",
		RecordingAction: r.recording,
		Version:         r.version,
	}
}

// Update rebinds action and persists the mapping.
//
// For GlobalAction the OS hotkey is synced first. A sync failure does not
// stop the update: the local mapping still changes and the failure goes to
// OnSyncFailure. The returned error covers validation and persistence only.
func (r *Registry) Update(ctx context.Context, action Action, binding string) error {
	if !Known(action) {
		return fmt.Errorf("update %q: %w", action, ErrUnknownAction)
	}
	if err := validateBinding(binding); err != nil {
		return fmt.Errorf("update %q to %q: %w", action, binding, err)
	}
	binding = shortcut.Canonical(binding)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.Get(action)
	if action == GlobalAction {
		r.syncGlobal(ctx, old, binding)
	}

	r.mu.Lock()
	r.bindings[action] = binding
	r.version++
	doc := r.documentLocked()
	r.mu.Unlock()

	slog.Debug("[DEBUG-KEYMAP] binding updated", "action", action, "old", old, "new", binding)
	err := r.persist(ctx, doc)
	r.notify()
	return err
}

// ResetToDefaults restores the compiled-in mapping, persists it and
// re-syncs the OS hotkey when the global binding changes.
func (r *Registry) ResetToDefaults(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	defaults := DefaultBindings()
	old := r.Get(GlobalAction)
	r.syncGlobal(ctx, old, defaults[GlobalAction])

	r.mu.Lock()
	r.bindings = defaults
	r.version++
	doc := r.documentLocked()
	r.mu.Unlock()

	slog.Info("[INFO-KEYMAP] shortcuts reset to defaults")
	err := r.persist(ctx, doc)
	r.notify()
	return err
}

// StartRecording puts action into recording mode. Starting while another
// action records moves recording to the new action.
func (r *Registry) StartRecording(action Action) error {
	if !Known(action) {
		return fmt.Errorf("start recording %q: %w", action, ErrUnknownAction)
	}
	r.mu.Lock()
	r.recording = action
	r.version++
	r.mu.Unlock()
	r.notify()
	return nil
}

// StopRecording leaves recording mode without saving.
func (r *Registry) StopRecording() {
	r.mu.Lock()
	if r.recording == "" {
		r.mu.Unlock()
		return
	}
	r.recording = ""
	r.version++
	r.mu.Unlock()
	r.notify()
}

// Recording returns the action being recorded, if any.
func (r *Registry) Recording() (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording, r.recording != ""
}

// HandleRecordingKey feeds a key-down to the recording flow. handled is
// true whenever recording is active: the event must not reach any other
// handler. A capture without a main key keeps recording; a complete
// capture is saved and ends recording.
func (r *Registry) HandleRecordingKey(ctx context.Context, ev shortcut.KeyEvent) (handled bool, err error) {
	action, ok := r.Recording()
	if !ok {
		return false, nil
	}
	binding := shortcut.Capture(ev)
	if validateBinding(binding) != nil {
		slog.Debug("[DEBUG-KEYMAP] recording ignored incomplete capture", "action", action, "capture", binding)
		return true, nil
	}
	err = r.Update(ctx, action, binding)
	r.StopRecording()
	return true, err
}

func (r *Registry) syncGlobal(ctx context.Context, oldBinding, newBinding string) {
	if r.syncer == nil || oldBinding == newBinding {
		return
	}
	if err := r.syncer.SyncGlobalShortcut(ctx, oldBinding, newBinding); err != nil {
		slog.Warn("[WARN-KEYMAP] global shortcut sync failed, keeping local binding",
			"old", oldBinding, "new", newBinding, "error", err)
		if r.onSyncFailure != nil {
			r.onSyncFailure(GlobalAction, oldBinding, newBinding, err)
		}
	}
}

func (r *Registry) persist(ctx context.Context, doc Document) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, doc); err != nil {
		slog.Warn("[WARN-KEYMAP] failed to persist shortcuts", "error", err)
		return err
	}
	return nil
}

// documentLocked must be called with mu held.
func (r *Registry) documentLocked() Document {
	shortcuts := make(map[string]string, len(r.bindings)+len(r.extras))
	maps.Copy(shortcuts, r.extras)
	for action, binding := range r.bindings {
		shortcuts[string(action)] = binding
	}
	return Document{Shortcuts: shortcuts}
}

func (r *Registry) notify() {
	if r.onChange == nil {
		return
	}
	r.onChange(r.Snapshot())
}

func validateBinding(binding string) error {
	p := shortcut.Parse(binding)
	switch {
	case len(p.MainKeys) == 0:
		return ErrIncompleteBinding
	case len(p.MainKeys) > 1:
		return ErrMalformedBinding
	}
	return nil
}
