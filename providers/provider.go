package providers

import (
	"context"
	"fmt"
	"strings"
)

// Supported provider identifiers
const (
	ProviderDeepSeek = "deepseek"
	ProviderVolcano  = "volcano"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

// Config is the per-request provider configuration, reconstructed from the
// inbound request's headers on every call and never persisted server-side.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string // optional override
	Model    string // optional override
}

// Provider streams text deltas for a prompt. Implementations are pure
// functions of (prompt, config): no state is shared between concurrent calls.
//
// onDelta is invoked for each text fragment in upstream order. Returning
// ErrStop ends consumption gracefully; any other error aborts the stream and
// is returned unchanged. Stream itself fails only with the normalized
// taxonomy (ErrAuth, ErrRateLimited, ErrTimeout, ErrMalformed).
type Provider interface {
	Name() string
	Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error
}

// New builds a provider from a per-request config, filling in the default
// endpoint and model when the caller omits them.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderDeepSeek:
		return newChatProvider(ProviderDeepSeek, cfg, "https://api.deepseek.com", "deepseek-chat"), nil
	case ProviderVolcano:
		return newChatProvider(ProviderVolcano, cfg, "https://ark.cn-beijing.volces.com/api/v3", "doubao-1-5-pro-32k-250115"), nil
	case ProviderOpenAI:
		return newChatProvider(ProviderOpenAI, cfg, "https://api.openai.com/v1", "gpt-4.1"), nil
	case ProviderGemini:
		return newGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
