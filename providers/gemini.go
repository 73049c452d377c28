package providers

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiProvider streams from the Gemini API through the genai SDK. Unlike
// the OpenAI-compatible providers it has no base URL override; only the model
// is configurable.
type geminiProvider struct {
	apiKey string
	model  string
}

func newGeminiProvider(cfg Config) *geminiProvider {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiProvider{apiKey: cfg.APIKey, model: model}
}

func (p *geminiProvider) Name() string { return ProviderGemini }

func (p *geminiProvider) Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &UpstreamError{Provider: ProviderGemini, Message: err.Error(), Err: ErrAuth}
	}

	for resp, err := range client.Models.GenerateContentStream(ctx, p.model, genai.Text(prompt), nil) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return p.classify(err)
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		if err := onDelta(text); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (p *geminiProvider) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderGemini, apiErr.Code, apiErr.Message)
	}
	// The SDK wraps transport failures without a status code
	if strings.Contains(strings.ToLower(err.Error()), "deadline") {
		return &UpstreamError{Provider: ProviderGemini, Message: err.Error(), Err: ErrTimeout}
	}
	return classifyTransport(ProviderGemini, err)
}
