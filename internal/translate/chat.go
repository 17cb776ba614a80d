package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	zhipuModel   = "glm-4.6"
	zhipuBaseURL = "https://open.bigmodel.cn/api/paas/v4/"
	openAIModel  = string(openai.ChatModelGPT4oMini)

	DefaultTemperature = 0.2
	DefaultTopP        = 0.9
)

func withDefaults(s Settings, model, baseURL string) Settings {
	if strings.TrimSpace(s.Model) == "" {
		s.Model = model
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		s.BaseURL = baseURL
	}
	if s.Temperature <= 0 {
		s.Temperature = DefaultTemperature
	}
	if s.TopP <= 0 {
		s.TopP = DefaultTopP
	}
	return s
}

// ChatEngine translates through an OpenAI-compatible chat completions API.
// Zhipu GLM exposes the same wire format under its own base URL.
type ChatEngine struct {
	client      *openai.Client
	model       string
	temperature float64
	topP        float64
}

// NewChatEngine requires an API key; everything else falls back to the
// OpenAI defaults.
func NewChatEngine(s Settings) (*ChatEngine, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	s = withDefaults(s, openAIModel, "")

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(s.APIKey)),
		option.WithMaxRetries(1),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &ChatEngine{
		client:      &client,
		model:       s.Model,
		temperature: s.Temperature,
		topP:        s.TopP,
	}, nil
}

// Model reports the configured model name.
func (e *ChatEngine) Model() string {
	return e.model
}

func (e *ChatEngine) Translate(ctx context.Context, text, targetLang, tone string) (string, error) {
	slog.Debug("[DEBUG-TRANSLATE] chat completion request",
		"model", e.model, "textLen", len(text), "target", targetLang, "tone", tone)

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(targetLang, tone)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(e.temperature),
		TopP:        openai.Float(e.topP),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoContent
	}
	return StripCodeFences(resp.Choices[0].Message.Content), nil
}
