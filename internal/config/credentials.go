package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"floatrans/internal/translate"
)

// Credentials holds API keys. They are read from the environment and an
// optional .env file and are never written to config.yaml.
type Credentials struct {
	ZhipuAPIKey  string `env:"ZHIPU_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	// FallbackAPIKey is used for any engine without its own key.
	FallbackAPIKey string `env:"FLOATRANS_API_KEY"`
}

// LoadCredentials loads .env files from dotenvDirs (first match of each
// variable wins, real environment always wins) and parses Credentials.
func LoadCredentials(dotenvDirs ...string) (Credentials, error) {
	for _, dir := range dotenvDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		path := filepath.Join(dir, ".env")
		if err := godotenv.Load(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to load .env", "path", path, "error", err)
			}
			continue
		}
		slog.Debug("[DEBUG-CONFIG] loaded .env", "path", path)
	}

	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// APIKeyFor returns the key for engine, or the fallback key.
func (c Credentials) APIKeyFor(engine string) string {
	var key string
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case translate.EngineZhipu, "":
		key = c.ZhipuAPIKey
	case translate.EngineOpenAI:
		key = c.OpenAIAPIKey
	}
	if strings.TrimSpace(key) == "" {
		key = c.FallbackAPIKey
	}
	return strings.TrimSpace(key)
}

// TranslateSettings combines cfg and the matching API key into engine
// settings.
func TranslateSettings(cfg Config, creds Credentials) translate.Settings {
	return translate.Settings{
		Engine:      cfg.Engine,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      creds.APIKeyFor(cfg.Engine),
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
}
