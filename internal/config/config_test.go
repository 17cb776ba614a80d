package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"floatrans/internal/testutil"
	"floatrans/internal/translate"
	"floatrans/internal/translator"
)

func newConfigPathForSaveTest(t *testing.T, elems ...string) string {
	t.Helper()
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", "")

	defaultPath := DefaultPath()

	return filepath.Join(filepath.Dir(defaultPath), filepath.Join(elems...))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultPath(t *testing.T) {
	t.Run("prefers LOCALAPPDATA", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", filepath.Join("local"))
		t.Setenv("APPDATA", filepath.Join("roaming"))
		want := filepath.Join("local", "floatrans", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to APPDATA", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("APPDATA", filepath.Join("roaming"))
		want := filepath.Join("roaming", "floatrans", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to home .config", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("APPDATA", "")
		origHome := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = origHome })
		userHomeDirFn = func() (string, error) { return filepath.Join("home", "tester"), nil }

		want := filepath.Join("home", "tester", ".config", "floatrans", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("temp dir when home is unavailable records a warning", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("APPDATA", "")
		origHome := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = origHome })
		userHomeDirFn = func() (string, error) { return "", errors.New("no home") }
		_ = ConsumeDefaultPathWarnings()

		want := filepath.Join(os.TempDir(), "floatrans", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
		warnings := ConsumeDefaultPathWarnings()
		if len(warnings) != 1 || !strings.Contains(warnings[0], "temp directory") {
			t.Fatalf("warnings = %v, want one temp directory warning", warnings)
		}
		if again := ConsumeDefaultPathWarnings(); len(again) != 0 {
			t.Fatalf("warnings not cleared: %v", again)
		}
	})
}

func TestLoadMissingAndEmptyFileReturnDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	cfg, err := Load(missing)
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("Load(missing) = %+v, want defaults", cfg)
	}

	empty := writeConfigFile(t, "   \n")
	cfg, err = Load(empty)
	if err != nil {
		t.Fatalf("Load(empty) error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("Load(empty) = %+v, want defaults", cfg)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load(\"\") expected error")
	}
}

func TestLoadParsesValues(t *testing.T) {
	path := writeConfigFile(t, `
engine: openai
model: gpt-4o
base_url: http://localhost:9999/v1
temperature: 0.5
top_p: 0.8
source_lang: EN
target_lang: ja
tone: formal
debounce_ms: 300
focus_delay_ms: 50
request_timeout_seconds: 30
storage_path: /tmp/ft.db
websocket_port: 18080
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{
		Engine:                translate.EngineOpenAI,
		Model:                 "gpt-4o",
		BaseURL:               "http://localhost:9999/v1",
		Temperature:           0.5,
		TopP:                  0.8,
		SourceLang:            "en",
		TargetLang:            "ja",
		Tone:                  translator.ToneFormal,
		DebounceMs:            300,
		FocusDelayMs:          50,
		RequestTimeoutSeconds: 30,
		StoragePath:           "/tmp/ft.db",
		WebSocketPort:         18080,
		IPCEnabled:            true,
	}
	if cfg != want {
		t.Fatalf("Load() = %+v\nwant %+v", cfg, want)
	}
	if cfg.Debounce() != 300*time.Millisecond || cfg.FocusDelay() != 50*time.Millisecond || cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("durations = %v %v %v", cfg.Debounce(), cfg.FocusDelay(), cfg.RequestTimeout())
	}
}

func TestLoadIPCEnabled(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"absent defaults to true", "engine: stub\n", true},
		{"explicit false", "engine: stub\nipc_enabled: false\n", false},
		{"explicit true", "engine: stub\nipc_enabled: true\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfigFile(t, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.IPCEnabled != tt.want {
				t.Fatalf("IPCEnabled = %v, want %v", cfg.IPCEnabled, tt.want)
			}
		})
	}
}

func TestLoadInvalidValuesFallBackWithWarning(t *testing.T) {
	logs := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	path := writeConfigFile(t, `
engine: deepl
temperature: 5
top_p: -1
source_lang: fr
target_lang: xx
tone: sarcastic
debounce_ms: -10
focus_delay_ms: 999999
request_timeout_seconds: 100000
websocket_port: 70000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defaults := DefaultConfig()
	if cfg != defaults {
		t.Fatalf("Load() = %+v\nwant defaults %+v", cfg, defaults)
	}
	out := logs.String()
	for _, want := range []string{"unknown engine", "unknown language", "unknown tone", "out of range", "websocket_port"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfigFile(t, "engine: [unterminated\n")
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected parse error")
	}
	if cfg != DefaultConfig() {
		t.Fatalf("Load() on parse error = %+v, want defaults", cfg)
	}
}

func TestReadLimitedFileRejectsOversize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 33)), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimitedFile(path, 32); err == nil {
		t.Fatal("readLimitedFile() expected size error")
	}
	raw, err := readLimitedFile(path, 33)
	if err != nil || len(raw) != 33 {
		t.Fatalf("readLimitedFile() = %d bytes, %v", len(raw), err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	in := DefaultConfig()
	in.TargetLang = "ko"
	in.Tone = translator.ToneAcademic
	in.IPCEnabled = false

	saved, err := Save(path, in)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved != in {
		t.Fatalf("Save() normalized = %+v, want %+v", saved, in)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != in {
		t.Fatalf("Load() after Save = %+v, want %+v", loaded, in)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("config perm = %o, want 600", perm)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".config.yaml.tmp.*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestSaveNormalizesZeroConfig(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	saved, err := Save(path, Config{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved != DefaultConfig() {
		t.Fatalf("Save(zero) = %+v, want defaults", saved)
	}
}

func TestSaveRejectsPathOutsideConfigDir(t *testing.T) {
	_ = newConfigPathForSaveTest(t, "config.yaml")
	outside := filepath.Join(t.TempDir(), "elsewhere", "config.yaml")
	if _, err := Save(outside, DefaultConfig()); err == nil || !strings.Contains(err.Error(), "outside config directory") {
		t.Fatalf("Save(outside) error = %v, want outside config directory", err)
	}

	traversal := newConfigPathForSaveTest(t, "..", "escape.yaml")
	if _, err := Save(traversal, DefaultConfig()); err == nil {
		t.Fatal("Save(traversal) expected error")
	}

	if _, err := Save("  ", DefaultConfig()); err == nil {
		t.Fatal("Save(blank) expected error")
	}
}

func TestPathWithinDir(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"same dir", base, true},
		{"child", filepath.Join(base, "config.yaml"), true},
		{"nested child", filepath.Join(base, "a", "b.yaml"), true},
		{"parent", filepath.Dir(base), false},
		{"sibling with prefix", base + "-other", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pathWithinDir(tt.path, base); got != tt.want {
				t.Fatalf("pathWithinDir(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestEnsureFileCreatesDefaults(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("EnsureFile() = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestResolveStoragePath(t *testing.T) {
	configPath := filepath.Join("base", "floatrans", "config.yaml")
	if got, want := ResolveStoragePath(DefaultConfig(), configPath), filepath.Join("base", "floatrans", "floatrans.db"); got != want {
		t.Fatalf("ResolveStoragePath(default) = %q, want %q", got, want)
	}
	cfg := DefaultConfig()
	cfg.StoragePath = " " + filepath.Join("custom", "keys.db") + " "
	if got, want := ResolveStoragePath(cfg, configPath), filepath.Join("custom", "keys.db"); got != want {
		t.Fatalf("ResolveStoragePath(custom) = %q, want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	src := DefaultConfig()
	dst := Clone(src)
	dst.TargetLang = "ja"
	if src.TargetLang == "ja" {
		t.Fatal("Clone() shares state with source")
	}
}
