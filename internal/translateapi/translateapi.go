// Package translateapi implements the external translate_text port (spec
// §6) over an LLM chat model: it builds a translation-focused system
// prompt, sends the text as a single user turn, and returns the model's
// reply verbatim for the caller (internal/markup, internal/orchestrator) to
// validate.
//
// It is grounded on the teacher's EinoAgentFixer
// (internal/compiler/eino_agent_fixer.go), which constructs an
// eino/openai.ChatModel and drives it through a ReAct agent for LaTeX
// error-fixing. Translation needs no tool calling or multi-step loop, so
// this adapter talks to the chat model directly instead of wrapping it in
// react.NewAgent.
package translateapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
)

// Config holds the chat-model connection settings spec §6 exposes.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client translates text via a configured chat model.
type Client struct {
	chatModel *openai.ChatModel
}

// New constructs a Client, creating the underlying chat model eagerly so
// that configuration errors surface at startup rather than on first use.
func New(ctx context.Context, cfg Config) (*Client, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o"
	}

	modelCfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: cfg.APIKey,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &Client{chatModel: chatModel}, nil
}

// Translate sends text to the chat model with a translation-only system
// prompt and returns its reply. It satisfies both
// internal/orchestrator.Translator and internal/markup.Translator.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt(targetLang)),
		schema.UserMessage(text),
	}

	response, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate translation: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("empty response from chat model")
	}
	return response.Content, nil
}

func systemPrompt(targetLang string) string {
	return fmt.Sprintf(
		"You are a professional document translator. Translate the user's text into %s.\n"+
			"Preserve paragraph breaks, heading markers, list markers, and any inline code or\n"+
			"math spans exactly as given. Do not add commentary, explanations, or quotation\n"+
			"marks around the translation. Output only the translated text.",
		targetLang,
	)
}
