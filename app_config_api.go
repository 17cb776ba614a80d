package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"floatrans/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns loaded config and emits any pending startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, eventConfigLoadFailed, map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg to disk, then updates in-memory config
// and the translation engine. The config:updated event carries the
// normalized config (with defaults filled).
func (a *App) SaveConfig(cfg config.Config) error {
	event, err := a.saveConfigWithLock(cfg)
	if err != nil {
		return err
	}
	// Concurrent saves are ordered by Version; frontend consumers must treat
	// the highest version as authoritative.
	a.emitRuntimeEvent(eventConfigUpdated, event)
	a.flushPendingConfigLoadWarnings()
	return nil
}

// saveConfigWithLock persists cfg, updates the in-memory snapshot and the
// engine, and bumps the event version under cfgSaveMu.
func (a *App) saveConfigWithLock(cfg config.Config) (configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	if a.configPath == "" {
		return configUpdatedEvent{}, errors.New("config path is not initialized")
	}
	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		return configUpdatedEvent{}, err
	}
	a.setConfigSnapshot(normalized)
	a.refreshEngineLocked(normalized)
	version := a.configEventVersion.Add(1)

	return configUpdatedEvent{
		Config:             config.Clone(normalized),
		Version:            version,
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}, nil
}

// applyConfig installs a config read from disk outside SaveConfig (watcher
// reloads, settings refresh). Unchanged configs still refresh the engine so
// rotated credentials are picked up.
func (a *App) applyConfig(cfg config.Config) {
	a.cfgSaveMu.Lock()
	changed := a.replaceConfigSnapshot(cfg)
	a.refreshEngineLocked(cfg)
	var event configUpdatedEvent
	if changed {
		event = configUpdatedEvent{
			Config:             config.Clone(cfg),
			Version:            a.configEventVersion.Add(1),
			UpdatedAtUnixMilli: time.Now().UnixMilli(),
		}
	}
	a.cfgSaveMu.Unlock()

	if changed {
		slog.Info("[INFO-CONFIG] config reloaded", "version", event.Version)
		a.emitRuntimeEvent(eventConfigUpdated, event)
	}
	a.flushPendingConfigLoadWarnings()
}

// refreshEngineLocked rebuilds the translator when the engine settings or
// credentials changed. Callers must hold cfgSaveMu.
func (a *App) refreshEngineLocked(cfg config.Config) {
	session, err := a.requireSession()
	if err != nil {
		return
	}
	settings := a.translateSettings(cfg)

	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	if settings == a.engineSettings {
		return
	}
	tr := a.buildTranslator(settings)
	a.engineSettings = settings
	session.SetTranslator(tr, settings.Engine)
	slog.Info("[INFO-CONFIG] translation engine updated", "engine", settings.Engine, "model", settings.Model)
}

// appSettings implements dispatcher.SettingsRefresher. It is kept off App
// so the ctx-taking method is not bound to the frontend.
type appSettings struct {
	app *App
}

// RefreshSettings re-reads config.yaml and the credentials before the
// window is shown.
func (s appSettings) RefreshSettings(_ context.Context) error {
	a := s.app
	if a.configPath == "" {
		return errors.New("config path is not initialized")
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.applyConfig(cfg)
	return nil
}
