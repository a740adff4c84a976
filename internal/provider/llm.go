package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cexll/agentsdk-go/pkg/api"
	"github.com/cexll/agentsdk-go/pkg/model"
	"github.com/stellarlinkco/finclaw/internal/config"
)

const llmSystemPrompt = `You are a financial research assistant. Answer
precisely and concisely. When asked for structured output, return only the
requested structure with no extra commentary.`

// runtimeClient implements LLMClient on top of the agentsdk runtime.
type runtimeClient struct {
	rt *api.Runtime
}

// NewLLMClient builds the completion client, or an error when no API key is
// configured. Callers treat a missing client as "LLM not available" and use
// their deterministic fallbacks.
func NewLLMClient(cfg *config.Config) (LLMClient, error) {
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return nil, fmt.Errorf("llm client: missing api key")
	}

	var factory api.ModelFactory
	switch cfg.Provider.Type {
	case "openai":
		factory = &model.OpenAIProvider{
			APIKey:    cfg.Provider.APIKey,
			BaseURL:   cfg.Provider.BaseURL,
			ModelName: cfg.Agent.Model,
			MaxTokens: cfg.Agent.MaxTokens,
		}
	default: // "anthropic" or empty
		factory = &model.AnthropicProvider{
			APIKey:    cfg.Provider.APIKey,
			BaseURL:   cfg.Provider.BaseURL,
			ModelName: cfg.Agent.Model,
			MaxTokens: cfg.Agent.MaxTokens,
		}
	}

	rt, err := api.New(context.Background(), api.Options{
		ModelFactory: factory,
		SystemPrompt: llmSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm runtime: %w", err)
	}
	return &runtimeClient{rt: rt}, nil
}

func (c *runtimeClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.rt.Run(ctx, api.Request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	if resp == nil || resp.Result == nil {
		return "", fmt.Errorf("llm complete: empty response")
	}
	out := strings.TrimSpace(resp.Result.Output)
	if out == "" {
		return "", fmt.Errorf("llm complete: empty output")
	}
	return out, nil
}
