//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

var (
	user32DLL = syscall.NewLazyDLL("user32.dll")
	kernelDLL = syscall.NewLazyDLL("kernel32.dll")

	procRegisterHotKey     = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW        = user32DLL.NewProc("GetMessageW")
	procTranslateMessage   = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW   = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32DLL.NewProc("PeekMessageW")
	procGetCurrentThreadID = kernelDLL.NewProc("GetCurrentThreadId")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	pmNoRemove = 0x0000

	// Application-defined hotkey IDs must stay in 0x0000-0xBFFF.
	maxHotkeyID int32 = 0xBFFF

	loopStopTimeout = 2 * time.Second
)

var nextHotkeyID int32 = 0x4000

// winMsg mirrors the Win32 MSG struct. Field order and types must match the
// binary layout on 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       struct{ x, y int32 }
	lPrivate uint32
}

// messageLoop is one registered hotkey and the locked OS thread pumping
// its messages.
type messageLoop struct {
	id       int32
	threadID uint32
	binding  string
	done     chan struct{}
}

type loopReady struct {
	threadID uint32
	err      error
}

// Manager owns one global hotkey registration.
type Manager struct {
	onTrigger func()

	mu     sync.Mutex
	active *messageLoop
}

// NewManager returns a manager that calls onTrigger when the hotkey fires.
func NewManager(onTrigger func()) *Manager {
	return &Manager{onTrigger: onTrigger}
}

// Start registers spec as the global hotkey, replacing any previous one.
func (m *Manager) Start(spec string) error {
	if m.onTrigger == nil {
		return errors.New("onTrigger callback is required")
	}
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := kernelDLL.Load(); err != nil {
		return fmt.Errorf("kernel32.dll is unavailable: %w", err)
	}

	binding, err := ParseBinding(spec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.stopLocked(); err != nil {
		return err
	}

	id := atomic.AddInt32(&nextHotkeyID, 1)
	if id < 0 || id > maxHotkeyID {
		return fmt.Errorf("hotkey ID range exhausted (ID=%d)", id)
	}

	loop := &messageLoop{id: id, binding: binding.Normalized(), done: make(chan struct{})}
	readyCh := make(chan loopReady, 1)
	go loop.run(binding, m.onTrigger, readyCh)

	ready := <-readyCh
	if ready.err != nil {
		return fmt.Errorf("register hotkey %q failed: %w", binding.Normalized(), ready.err)
	}
	loop.threadID = ready.threadID
	m.active = loop
	slog.Debug("[hotkey] registered", "binding", loop.binding, "hotkeyID", id)
	return nil
}

// Stop releases the active hotkey.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

// ActiveBinding returns the normalized active binding, or "".
func (m *Manager) ActiveBinding() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.binding
}

func (m *Manager) stopLocked() error {
	loop := m.active
	if loop == nil {
		return nil
	}
	m.active = nil

	stopErr := postQuit(loop.threadID)
	if stopErr != nil {
		if err := unregisterHotKey(loop.id); err != nil {
			slog.Warn("[hotkey] cross-thread unregister fallback failed",
				"error", err, "hotkeyID", loop.id)
		}
	}

	timer := time.NewTimer(loopStopTimeout)
	defer timer.Stop()
	select {
	case <-loop.done:
	case <-timer.C:
		slog.Warn("[hotkey] message loop stop timed out, thread may leak", "hotkeyID", loop.id)
		stopErr = errors.Join(stopErr, fmt.Errorf("hotkey message loop stop timed out (hotkeyID=%d)", loop.id))
	}
	return stopErr
}

func (l *messageLoop) run(binding Binding, onTrigger func(), readyCh chan<- loopReady) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	threadID, err := getCurrentThreadID()
	if err != nil {
		readyCh <- loopReady{err: err}
		return
	}

	// PeekMessageW creates the thread queue so PostThreadMessageW can
	// deliver WM_QUIT. It returns 0 when the queue is empty.
	var qmsg winMsg
	if ret, _, peekErr := procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove); ret == 0 && peekErr != syscall.Errno(0) {
		slog.Warn("[hotkey] PeekMessageW for queue init returned error", "error", peekErr, "hotkeyID", l.id)
	}

	if err := registerHotKey(l.id, uint32(binding.Modifiers()), uint32(binding.Key())); err != nil {
		readyCh <- loopReady{err: err}
		return
	}
	defer func() {
		if err := unregisterHotKey(l.id); err != nil {
			slog.Error("[hotkey] unregister on loop exit failed", "error", err, "hotkeyID", l.id)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[hotkey] GetMessageW failed, exiting loop", "error", lastErr, "hotkeyID", l.id)
			return
		case 0:
			slog.Debug("[hotkey] WM_QUIT received", "hotkeyID", l.id)
			return
		}

		if msg.message == wmHotkey && int32(msg.wParam) == l.id {
			go onTrigger()
			continue
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func registerHotKey(id int32, modifiers uint32, key uint32) error {
	res, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(modifiers), uintptr(key))
	return win32Result(res, err, "RegisterHotKey")
}

func unregisterHotKey(id int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	return win32Result(res, err, "UnregisterHotKey")
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	return win32Result(res, err, "PostThreadMessageW")
}

func win32Result(res uintptr, err error, name string) error {
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return err
}

func getCurrentThreadID() (uint32, error) {
	tid, _, err := procGetCurrentThreadID.Call()
	if tid == 0 {
		return 0, fmt.Errorf("GetCurrentThreadId returned 0: %w", err)
	}
	return uint32(tid), nil
}
