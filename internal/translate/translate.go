// Package translate provides the translation engines behind the
// translator window.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Translator turns text into targetLang using the given tone.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, tone string) (string, error)
}

// Engine names accepted by New.
const (
	EngineZhipu  = "zhipu"
	EngineOpenAI = "openai"
	EngineStub   = "stub"
)

var (
	ErrMissingAPIKey = errors.New("translation API key is not configured")
	ErrUnknownEngine = errors.New("unknown translation engine")
	ErrNoContent     = errors.New("translation returned no content")
)

// Settings selects and tunes an engine.
type Settings struct {
	Engine      string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	TopP        float64
}

// New builds the engine named by s.Engine.
func New(s Settings) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(s.Engine)) {
	case EngineZhipu, "":
		return NewChatEngine(withDefaults(s, zhipuModel, zhipuBaseURL))
	case EngineOpenAI:
		return NewChatEngine(withDefaults(s, openAIModel, ""))
	case EngineStub:
		return Stub{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, s.Engine)
	}
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text, targetLang, tone string) (string, error)

func (f Func) Translate(ctx context.Context, text, targetLang, tone string) (string, error) {
	return f(ctx, text, targetLang, tone)
}

// Stub echoes the input tagged with the normalized target code. It never
// fails and never leaves the process.
type Stub struct{}

func (Stub) Translate(ctx context.Context, text, targetLang, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(strings.TrimSpace(targetLang)), text), nil
}

// NormalizeTargetLanguage maps language codes and names to the English
// language name used in prompts. Unknown values pass through trimmed.
func NormalizeTargetLanguage(targetLang string) string {
	switch strings.ToUpper(strings.TrimSpace(targetLang)) {
	case "ZH", "ZH-CN", "ZH_CN", "ZH-HANS", "CHINESE":
		return "Chinese"
	case "EN", "EN-US", "EN_GB", "EN-GB", "ENGLISH":
		return "English"
	case "JA", "JP", "JAPANESE":
		return "Japanese"
	case "KO", "KR", "KOREAN":
		return "Korean"
	}
	return strings.TrimSpace(targetLang)
}

// ToneInstruction returns the prompt sentence for tone.
func ToneInstruction(tone string) string {
	switch tone {
	case "Formal":
		return "Use a professional, formal, and polite tone suitable for business contexts."
	case "Casual":
		return "Use a casual, natural, and conversational tone as used in daily life."
	case "Academic":
		return "Use an academic, rigorous, and objective tone with appropriate terminology."
	case "Creative":
		return "Use a creative, vivid, and expressive tone with literary devices if appropriate."
	}
	return "Use a natural and fluent tone."
}

// SystemPrompt builds the instruction sent ahead of the user's text.
func SystemPrompt(targetLang, tone string) string {
	return fmt.Sprintf(
		"You are a professional translation engine. Translate the provided text into %s. %s "+
			"Requirements: Output ONLY the translated text without explanations, quotes, Markdown, "+
			"numbering, or extra content. Preserve original line breaks and formatting as much as possible.",
		NormalizeTargetLanguage(targetLang), ToneInstruction(tone))
}

// StripCodeFences removes one Markdown fence wrapping the whole text,
// including an optional info string such as "text" or "markdown".
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 6 || !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return trimmed
	}
	inner := strings.TrimPrefix(trimmed, "```")
	inner = strings.TrimLeftFunc(inner, func(r rune) bool {
		return r == '-' || (r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'))
	})
	inner = strings.TrimLeft(inner, "\r\n ")
	inner = strings.TrimSuffix(inner, "```")
	return strings.TrimSpace(inner)
}
