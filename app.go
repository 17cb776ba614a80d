package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"floatrans/internal/config"
	"floatrans/internal/dispatcher"
	"floatrans/internal/hotkeys"
	"floatrans/internal/ipc"
	"floatrans/internal/keymap"
	"floatrans/internal/kvstore"
	"floatrans/internal/sessionlog"
	"floatrans/internal/translate"
	"floatrans/internal/translator"
	"floatrans/internal/wsserver"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner):
	//   cfgSaveMu -> cfgMu
	//   cfgSaveMu -> engineMu
	//
	// Independent locks: ctxMu, startupWarnMu, windowMu, stream.mu.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// engineMu guards the settings the active translator was built from.
	engineMu       sync.Mutex
	engineSettings translate.Settings

	// Backend services. Set once during startup before any bound method
	// can run; nil when the service failed to start.
	store      *kvstore.Store
	registry   *keymap.Registry
	session    *translator.Session
	dispatcher *dispatcher.Dispatcher
	hotkeys    *hotkeys.Manager
	ipcServer  *ipc.Server
	cfgWatcher *config.Watcher
	// wsHub streams translator and shortcut state to local clients.
	wsHub  *wsserver.Hub
	stream *stateStream

	// errorLog keeps recent Warn/Error records for the frontend.
	errorLog         *sessionlog.Ring
	errorLogLastEmit atomic.Int64

	// Window state.
	windowMu      sync.Mutex
	windowVisible bool
	shuttingDown  atomic.Bool

	// Background worker cancellation/waits.
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	a := &App{}
	a.hotkeys = hotkeys.NewManager(a.onGlobalHotkey)
	a.stream = newStateStream(a)
	a.errorLog = sessionlog.NewRing(sessionlog.DefaultCapacity)
	return a
}

// GetWebSocketURL returns the state stream endpoint for the frontend, or ""
// when the WebSocket server is not available.
func (a *App) GetWebSocketURL() string {
	if a.wsHub == nil {
		slog.Debug("[WS] wsHub is nil, WebSocket URL unavailable")
		return ""
	}
	return a.wsHub.URL()
}
