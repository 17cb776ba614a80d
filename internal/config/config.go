package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"floatrans/internal/translate"
	"floatrans/internal/translator"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Linear backoff: renameRetryBaseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond
	// Port 0 means "OS auto-assign".
	maxValidPort = 65535

	defaultDebounceMs            = 500
	maxDebounceMs                = 10_000
	defaultFocusDelayMs          = 100
	maxFocusDelayMs              = 5_000
	defaultRequestTimeoutSeconds = 60
	maxRequestTimeoutSeconds     = 600

	appDirName        = "floatrans"
	configFileName    = "config.yaml"
	storageFileName   = "floatrans.db"
	ipcEnabledYAMLKey = "ipc_enabled"
)

// defaultConfigDirFn is a test seam for validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	out := defaultPathWarningState.messages
	defaultPathWarningState.messages = nil
	return out
}

// Config is floatrans runtime configuration. API credentials are not part
// of it; see Credentials.
type Config struct {
	// Engine selects the translation backend: zhipu, openai or stub.
	Engine      string  `yaml:"engine" json:"engine"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	TopP        float64 `yaml:"top_p" json:"top_p"`

	SourceLang string `yaml:"source_lang" json:"source_lang"`
	TargetLang string `yaml:"target_lang" json:"target_lang"`
	Tone       string `yaml:"tone" json:"tone"`

	DebounceMs            int `yaml:"debounce_ms" json:"debounce_ms"`
	FocusDelayMs          int `yaml:"focus_delay_ms" json:"focus_delay_ms"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`

	// StoragePath is the SQLite file holding shortcut bindings. Empty means
	// floatrans.db next to config.yaml.
	StoragePath string `yaml:"storage_path,omitempty" json:"storage_path,omitempty"`
	// WebSocketPort is the local state-stream port. 0 lets the OS choose.
	WebSocketPort int `yaml:"websocket_port" json:"websocket_port"`
	// IPCEnabled lets a second instance or floatransctl reach this one.
	IPCEnabled bool `yaml:"ipc_enabled" json:"ipc_enabled"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Engine:                translate.EngineZhipu,
		Temperature:           translate.DefaultTemperature,
		TopP:                  translate.DefaultTopP,
		SourceLang:            translator.DefaultSourceLang,
		TargetLang:            translator.DefaultTargetLang,
		Tone:                  translator.DefaultTone,
		DebounceMs:            defaultDebounceMs,
		FocusDelayMs:          defaultFocusDelayMs,
		RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		IPCEnabled:            true,
	}
}

// Debounce returns DebounceMs as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// FocusDelay returns FocusDelayMs as a duration.
func (c Config) FocusDelay() time.Duration {
	return time.Duration(c.FocusDelayMs) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ResolveStoragePath returns cfg.StoragePath, or the default database file
// next to configPath when unset.
func ResolveStoragePath(cfg Config, configPath string) string {
	if p := strings.TrimSpace(cfg.StoragePath); p != "" {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(configPath), storageFileName)
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Load reads the config file. A missing or empty file yields defaults.
// Out-of-range values fall back to their defaults with a warning; only
// unreadable or unparsable files return an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}

	// yaml leaves IPCEnabled at its default when the key is absent, but an
	// explicit "ipc_enabled: false" must win. Probe the raw document to tell
	// the two apart.
	var rawMap map[string]any
	if err := yaml.Unmarshal(raw, &rawMap); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config metadata", "error", err)
	} else if _, ok := rawMap[ipcEnabledYAMLKey]; !ok {
		cfg.IPCEnabled = DefaultConfig().IPCEnabled
	}

	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a copy of cfg. Config holds no reference types today; Clone
// keeps call sites stable if that changes.
func Clone(src Config) Config {
	return src
}

// Save validates cfg, fills defaults, and atomically writes to path.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	applyDefaultsAndValidate(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes via temp-file + rename and retries the rename on
// Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and keeps writes inside the default
// config directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir rejects traversal and Windows cross-drive escapes.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and resets invalid values
// in place. Never fatal: a misconfigured file must not prevent startup.
func applyDefaultsAndValidate(cfg *Config) {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		return
	}

	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	switch cfg.Engine {
	case translate.EngineZhipu, translate.EngineOpenAI, translate.EngineStub:
	case "":
		cfg.Engine = defaults.Engine
	default:
		slog.Warn("[WARN-CONFIG] unknown engine, falling back to default",
			"configured", cfg.Engine, "default", defaults.Engine)
		cfg.Engine = defaults.Engine
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)

	if cfg.Temperature <= 0 || cfg.Temperature > 2 {
		warnRange("temperature", cfg.Temperature, defaults.Temperature)
		cfg.Temperature = defaults.Temperature
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		warnRange("top_p", cfg.TopP, defaults.TopP)
		cfg.TopP = defaults.TopP
	}

	cfg.SourceLang = validLang(cfg.SourceLang, defaults.SourceLang, "source_lang")
	cfg.TargetLang = validLang(cfg.TargetLang, defaults.TargetLang, "target_lang")
	cfg.Tone = validTone(cfg.Tone, defaults.Tone)

	cfg.DebounceMs = clampInt("debounce_ms", cfg.DebounceMs, 1, maxDebounceMs, defaults.DebounceMs)
	cfg.FocusDelayMs = clampInt("focus_delay_ms", cfg.FocusDelayMs, 1, maxFocusDelayMs, defaults.FocusDelayMs)
	cfg.RequestTimeoutSeconds = clampInt("request_timeout_seconds", cfg.RequestTimeoutSeconds, 1, maxRequestTimeoutSeconds, defaults.RequestTimeoutSeconds)

	cfg.StoragePath = strings.TrimSpace(cfg.StoragePath)
	validateWebSocketPort(cfg)
}

func validLang(code, fallback, field string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, l := range translator.Languages {
		if l.Code == normalized {
			return normalized
		}
	}
	if normalized != "" {
		slog.Warn("[WARN-CONFIG] unknown language, falling back to default",
			"field", field, "configured", code, "default", fallback)
	}
	return fallback
}

func validTone(tone, fallback string) string {
	for _, t := range translator.Tones {
		if strings.EqualFold(t, strings.TrimSpace(tone)) {
			return t
		}
	}
	if strings.TrimSpace(tone) != "" {
		slog.Warn("[WARN-CONFIG] unknown tone, falling back to default", "configured", tone, "default", fallback)
	}
	return fallback
}

// clampInt treats 0 as "unset" and silently defaults it; other
// out-of-range values are logged before defaulting.
func clampInt(field string, v, lo, hi, fallback int) int {
	if v == 0 {
		return fallback
	}
	if v < lo || v > hi {
		warnRange(field, v, fallback)
		return fallback
	}
	return v
}

func warnRange(field string, configured, fallback any) {
	slog.Warn("[WARN-CONFIG] value out of range, falling back to default",
		"field", field, "configured", configured, "default", fallback)
}

func validateWebSocketPort(cfg *Config) {
	if cfg.WebSocketPort < 0 || cfg.WebSocketPort > maxValidPort {
		slog.Warn("[WARN-CONFIG] websocket_port out of valid range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.WebSocketPort, "max", maxValidPort)
		cfg.WebSocketPort = 0
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
