package main

import (
	"context"
	"path/filepath"
	"testing"

	"floatrans/internal/config"
	"floatrans/internal/translate"
)

// NOTE: This file overrides package-level function variables
// (runtimeEventsEmitFn, loadCredentialsFn, newTranslatorFn). Do not use
// t.Parallel() here.

func newConfigPathForAPITest(t *testing.T, fileName string) string {
	t.Helper()
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", "")

	defaultPath := config.DefaultPath()
	return filepath.Join(filepath.Dir(defaultPath), fileName)
}

// stubEngineFactory counts translator builds and returns the stub engine.
func stubEngineFactory(t *testing.T, creds config.Credentials) *[]translate.Settings {
	t.Helper()
	origCreds := loadCredentialsFn
	origNew := newTranslatorFn
	t.Cleanup(func() {
		loadCredentialsFn = origCreds
		newTranslatorFn = origNew
	})

	var built []translate.Settings
	loadCredentialsFn = func(...string) (config.Credentials, error) { return creds, nil }
	newTranslatorFn = func(s translate.Settings) (translate.Translator, error) {
		built = append(built, s)
		return translate.Stub{}, nil
	}
	return &built
}

func TestSaveConfigEmitsUpdatedConfigEvent(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	stubEngineFactory(t, config.Credentials{})
	app.configPath = newConfigPathForAPITest(t, "config.yaml")
	app.setConfigSnapshot(config.DefaultConfig())

	if err := app.SaveConfig(config.Config{}); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	got := app.GetConfig()
	if got.Engine != config.DefaultConfig().Engine {
		t.Fatalf("saved engine = %q, want %q", got.Engine, config.DefaultConfig().Engine)
	}
	events := stub.eventsNamed(eventConfigUpdated)
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	payload, ok := events[0].(configUpdatedEvent)
	if !ok {
		t.Fatalf("payload type = %T", events[0])
	}
	if payload.Config != got {
		t.Fatalf("event config = %+v, want %+v", payload.Config, got)
	}
	if payload.Version != 1 {
		t.Fatalf("event version = %d, want 1", payload.Version)
	}
	if payload.UpdatedAtUnixMilli <= 0 {
		t.Fatalf("event updated_at_unix_milli = %d, want > 0", payload.UpdatedAtUnixMilli)
	}
}

func TestSaveConfigEmitsMonotonicEventVersion(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	stubEngineFactory(t, config.Credentials{})
	app.configPath = newConfigPathForAPITest(t, "config.yaml")

	cfg1 := config.DefaultConfig()
	cfg1.TargetLang = "ja"
	cfg2 := config.DefaultConfig()
	cfg2.TargetLang = "ko"

	if err := app.SaveConfig(cfg1); err != nil {
		t.Fatalf("SaveConfig(cfg1) error = %v", err)
	}
	if err := app.SaveConfig(cfg2); err != nil {
		t.Fatalf("SaveConfig(cfg2) error = %v", err)
	}

	events := stub.eventsNamed(eventConfigUpdated)
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	v1 := events[0].(configUpdatedEvent).Version
	v2 := events[1].(configUpdatedEvent).Version
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = [%d %d], want [1 2]", v1, v2)
	}
}

func TestSaveConfigKeepsPreviousStateOnPathError(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	stubEngineFactory(t, config.Credentials{})
	newConfigPathForAPITest(t, "config.yaml")
	app.configPath = filepath.Join(t.TempDir(), "elsewhere", "config.yaml")

	before := config.DefaultConfig()
	before.Tone = "Formal"
	app.setConfigSnapshot(before)

	next := config.DefaultConfig()
	next.Tone = "Academic"
	if err := app.SaveConfig(next); err == nil {
		t.Fatal("SaveConfig() expected error for path outside the config directory")
	}
	if got := app.GetConfig(); got != before {
		t.Fatalf("config changed after failed save: %+v", got)
	}
	if n := len(stub.eventsNamed(eventConfigUpdated)); n != 0 {
		t.Fatalf("event count = %d, want 0", n)
	}
}

func TestSaveConfigRebuildsEngineOnlyWhenSettingsChange(t *testing.T) {
	app, _, _ := newWiredTestApp(t)
	built := stubEngineFactory(t, config.Credentials{ZhipuAPIKey: "zk", OpenAIAPIKey: "ok"})
	app.configPath = newConfigPathForAPITest(t, "config.yaml")

	cfg := config.DefaultConfig()
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	cfg.Tone = "Formal"
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if len(*built) != 1 {
		t.Fatalf("engine builds = %d, want 1 (tone is not an engine setting)", len(*built))
	}

	cfg.Engine = translate.EngineOpenAI
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if len(*built) != 2 {
		t.Fatalf("engine builds = %d, want 2", len(*built))
	}
	if last := (*built)[1]; last.Engine != translate.EngineOpenAI || last.APIKey != "ok" {
		t.Fatalf("last settings = %+v", last)
	}
	if got := app.GetTranslatorState().Engine; got != translate.EngineOpenAI {
		t.Fatalf("session engine = %q, want openai", got)
	}
}

func TestSaveConfigQueuesWarningWhenEngineFails(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	stubEngineFactory(t, config.Credentials{})
	newTranslatorFn = func(translate.Settings) (translate.Translator, error) {
		return nil, translate.ErrMissingAPIKey
	}
	app.configPath = newConfigPathForAPITest(t, "config.yaml")

	if err := app.SaveConfig(config.DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	warnings := stub.eventsNamed(eventConfigLoadFailed)
	if len(warnings) != 1 {
		t.Fatalf("config:load-failed events = %d, want 1", len(warnings))
	}
	msg := warnings[0].(map[string]string)["message"]
	if msg == "" {
		t.Fatal("warning message is empty")
	}
}

func TestRefreshSettingsAppliesConfigFromDisk(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	stubEngineFactory(t, config.Credentials{})
	app.configPath = newConfigPathForAPITest(t, "config.yaml")
	app.setConfigSnapshot(config.DefaultConfig())

	onDisk := config.DefaultConfig()
	onDisk.DebounceMs = 750
	if _, err := config.Save(app.configPath, onDisk); err != nil {
		t.Fatalf("config.Save() error = %v", err)
	}

	if err := (appSettings{app: app}).RefreshSettings(context.Background()); err != nil {
		t.Fatalf("RefreshSettings() error = %v", err)
	}
	if got := app.GetConfig().DebounceMs; got != 750 {
		t.Fatalf("DebounceMs = %d, want 750", got)
	}
	if n := len(stub.eventsNamed(eventConfigUpdated)); n != 1 {
		t.Fatalf("config:updated events = %d, want 1", n)
	}

	// Unchanged file: no new event.
	if err := (appSettings{app: app}).RefreshSettings(context.Background()); err != nil {
		t.Fatalf("RefreshSettings() error = %v", err)
	}
	if n := len(stub.eventsNamed(eventConfigUpdated)); n != 1 {
		t.Fatalf("config:updated events after no-op refresh = %d, want 1", n)
	}
}

func TestRefreshSettingsRequiresConfigPath(t *testing.T) {
	app, _, _ := newWiredTestApp(t)
	err := (appSettings{app: app}).RefreshSettings(context.Background())
	if err == nil {
		t.Fatal("RefreshSettings() expected error without config path")
	}
}

func TestGetConfigAndFlushWarnings(t *testing.T) {
	app, stub, _ := newWiredTestApp(t)
	app.addPendingConfigLoadWarning("first")
	app.addPendingConfigLoadWarning("  ")
	app.addPendingConfigLoadWarning("second")

	app.GetConfigAndFlushWarnings()
	app.GetConfigAndFlushWarnings()

	warnings := stub.eventsNamed(eventConfigLoadFailed)
	if len(warnings) != 1 {
		t.Fatalf("config:load-failed events = %d, want 1", len(warnings))
	}
	if got := warnings[0].(map[string]string)["message"]; got != "first\nsecond" {
		t.Fatalf("message = %q", got)
	}
}

func TestFlushPendingWarningsWaitsForRuntime(t *testing.T) {
	stub := stubRuntime(t)
	app := NewApp()
	app.addPendingConfigLoadWarning("queued")

	app.flushPendingConfigLoadWarnings()
	if n := len(stub.eventsNamed(eventConfigLoadFailed)); n != 0 {
		t.Fatalf("emitted before runtime ready: %d", n)
	}

	app.setRuntimeContext(context.Background())
	app.flushPendingConfigLoadWarnings()
	if n := len(stub.eventsNamed(eventConfigLoadFailed)); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
}
