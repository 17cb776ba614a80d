package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"floatrans/internal/config"
	"floatrans/internal/dispatcher"
	"floatrans/internal/ipc"
	"floatrans/internal/keymap"
	"floatrans/internal/kvstore"
	"floatrans/internal/translate"
	"floatrans/internal/translator"
	"floatrans/internal/wsserver"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...any)
	Infof(context.Context, string, ...any)
	Errorf(context.Context, string, ...any)
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...any) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowHideFn                            = runtime.WindowHide
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop
	runtimeClipboardSetTextFn                      = runtime.ClipboardSetText
	defaultConfigPathFn                            = config.DefaultPath
	loadCredentialsFn                              = config.LoadCredentials
	newTranslatorFn                                = translate.New
	openKVStoreFn                                  = kvstore.Open
	newIPCServerFn                                 = ipc.NewServer
)

const shutdownWaitTimeout = 10 * time.Second

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)
	a.setWindowVisible(true)

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancel = cancel

	a.configPath = defaultConfigPathFn()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Config failures are never fatal; run with defaults and tell the user.
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}
	a.setConfigSnapshot(cfg)

	settings := a.translateSettings(cfg)
	tr := a.buildTranslator(settings)
	a.engineSettings = settings
	a.session = translator.New(translator.Options{
		Translator: tr,
		Engine:     cfg.Engine,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		Tone:       cfg.Tone,
		Debounce:   cfg.Debounce(),
		Timeout:    cfg.RequestTimeout(),
		OnChange:   a.onTranslatorChange,
	})

	a.registry = keymap.New(keymap.Options{
		Store:         a.openShortcutStore(bgCtx, cfg),
		Syncer:        a.hotkeys,
		OnSyncFailure: a.onShortcutSyncFailure,
		OnChange:      a.onShortcutsChange,
	})
	if err := a.registry.Load(bgCtx); err != nil {
		runtimeLogger.Warningf(ctx, "failed to load shortcuts, using defaults: %v", err)
		a.addPendingConfigLoadWarning("Failed to load saved shortcuts. Using defaults. Error: " + err.Error())
	}

	a.dispatcher = dispatcher.New(dispatcher.Options{
		Bindings:   a.registry,
		Window:     appWindow{app: a},
		Content:    a.session,
		Settings:   appSettings{app: a},
		FocusDelay: cfg.FocusDelay(),
	})

	a.startWebSocketServer(bgCtx, cfg)
	a.stream.start(bgCtx)
	a.startIPCServer(bgCtx, cfg)
	a.startConfigWatcher(bgCtx)
	a.configureGlobalHotkey()

	a.onTranslatorChange(a.session.Snapshot())
	a.onShortcutsChange(a.registry.Snapshot())
	a.flushPendingConfigLoadWarnings()
}

// openShortcutStore opens the SQLite store for shortcut bindings. When the
// database cannot be opened, bindings live in memory for this run only.
func (a *App) openShortcutStore(ctx context.Context, cfg config.Config) keymap.Store {
	path := config.ResolveStoragePath(cfg, a.configPath)
	store, err := openKVStoreFn(ctx, path)
	if err != nil {
		runtimeLogger.Warningf(a.runtimeContext(), "shortcut storage unavailable at %s: %v", path, err)
		a.addPendingConfigLoadWarning(
			"Failed to open shortcut storage. Shortcut changes will not be saved. Error: " + err.Error(),
		)
		return &keymap.MemoryStore{}
	}
	a.store = store
	return keymap.NewKVStore(store)
}

func (a *App) startWebSocketServer(ctx context.Context, cfg config.Config) {
	hub := wsserver.NewHub(wsserver.HubOptions{
		Addr: fmt.Sprintf("127.0.0.1:%d", cfg.WebSocketPort),
	})
	if err := hub.Start(ctx); err != nil {
		runtimeLogger.Warningf(a.runtimeContext(), "websocket server failed: %v", err)
		return
	}
	a.wsHub = hub
}

func (a *App) startIPCServer(ctx context.Context, cfg config.Config) {
	if !cfg.IPCEnabled {
		slog.Info("[ipc] disabled by config")
		return
	}
	server := newIPCServerFn("", appIPCHandler{app: a})
	if err := server.Start(ctx); err != nil {
		runtimeLogger.Errorf(a.runtimeContext(), "ipc server failed: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to start the activation server. floatransctl and second launches cannot reach this window. Error: " + err.Error(),
		)
		return
	}
	a.ipcServer = server
	runtimeLogger.Infof(a.runtimeContext(), "ipc server listening: %s", server.Endpoint())
}

func (a *App) startConfigWatcher(ctx context.Context) {
	w, err := config.Watch(ctx, a.configPath, 0, func(cfg config.Config, err error) {
		if err != nil {
			return
		}
		a.applyConfig(cfg)
	})
	if err != nil {
		slog.Warn("[WARN-CONFIG] config watcher unavailable", "error", err)
		return
	}
	a.cfgWatcher = w
}

// configureGlobalHotkey registers the persisted toggle binding with the OS.
func (a *App) configureGlobalHotkey() {
	registry, err := a.requireRegistry()
	if err != nil || a.hotkeys == nil {
		return
	}
	logCtx := a.runtimeContext()
	binding := registry.Get(keymap.GlobalAction)
	if binding == "" {
		slog.Debug("[hotkey] no global binding configured, skipping")
		return
	}
	if err := a.hotkeys.Start(binding); err != nil {
		runtimeLogger.Warningf(logCtx, "global hotkey registration failed: %v", err)
		a.addPendingConfigLoadWarning(
			fmt.Sprintf("Failed to register global shortcut %s. Error: %v", binding, err),
		)
		return
	}
	runtimeLogger.Infof(logCtx, "global hotkey registered: %s", a.hotkeys.ActiveBinding())
}

// onGlobalHotkey runs on the hotkey message loop when the OS shortcut fires.
func (a *App) onGlobalHotkey() {
	ctx := a.runtimeContext()
	d, err := a.requireDispatcher()
	if ctx == nil || err != nil || a.shuttingDown.Load() {
		return
	}
	d.HandleGlobalShortcut(ctx)
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)

	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.session != nil {
		a.session.Close()
	}
	if a.hotkeys != nil {
		if err := a.hotkeys.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "hotkeys stop failed: %v", err)
		}
	}
	if a.ipcServer != nil {
		if err := a.ipcServer.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "ipc server stop failed: %v", err)
		}
	}
	if a.cfgWatcher != nil {
		if err := a.cfgWatcher.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "config watcher stop failed: %v", err)
		}
	}
	if a.bgCancel != nil {
		a.bgCancel()
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}
	if a.session != nil && !waitWithTimeout(a.session.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for in-flight translations during shutdown")
	}
	if a.wsHub != nil {
		if err := a.wsHub.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "websocket server stop failed: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "shortcut storage close failed: %v", err)
		}
	}
	a.setRuntimeContext(nil)
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout when waitFn blocks; this is
	// only used on shutdown paths.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// dotenvDirs lists where .env files are looked up: next to config.yaml,
// then next to the executable.
func (a *App) dotenvDirs() []string {
	dirs := []string{filepath.Dir(a.configPath)}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// translateSettings combines cfg with freshly loaded credentials.
func (a *App) translateSettings(cfg config.Config) translate.Settings {
	creds, err := loadCredentialsFn(a.dotenvDirs()...)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load credentials", "error", err)
	}
	return config.TranslateSettings(cfg, creds)
}

// buildTranslator returns nil when the engine cannot be built; the session
// then reports a missing key for every request.
func (a *App) buildTranslator(settings translate.Settings) translate.Translator {
	tr, err := newTranslatorFn(settings)
	if err == nil {
		return tr
	}
	if errors.Is(err, translate.ErrMissingAPIKey) {
		a.addPendingConfigLoadWarning(fmt.Sprintf(
			"No API key configured for engine %q. Set ZHIPU_API_KEY, OPENAI_API_KEY or FLOATRANS_API_KEY.",
			settings.Engine,
		))
	} else {
		a.addPendingConfigLoadWarning("Failed to initialize translation engine. Error: " + err.Error())
	}
	slog.Warn("[WARN-TRANSLATOR] translation engine unavailable", "engine", settings.Engine, "error", err)
	return nil
}
