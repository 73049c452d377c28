package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"linguahub/internal/stream"
)

const maxCompletionTokens = 2000

// chatProvider talks to any OpenAI-compatible chat completions API. DeepSeek,
// Volcano (Ark) and OpenAI itself all share this wire format and differ only
// in endpoint, default model and the name of the token-limit parameter.
type chatProvider struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newChatProvider(name string, cfg Config, defaultBaseURL, defaultModel string) *chatProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	// Volcano's reasoning models can take much longer per request
	timeout := 30 * time.Second
	if name == ProviderVolcano {
		timeout = 30 * time.Minute
	}

	return &chatProvider{
		name:    name,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *chatProvider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	// OpenAI deprecated max_tokens in favor of max_completion_tokens;
	// the other compatible providers still use the old name.
	MaxTokens           int `json:"max_tokens,omitempty"`
	MaxCompletionTokens int `json:"max_completion_tokens,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream performs one streaming chat completion and invokes onDelta for each
// content fragment. All failures are normalized to the adapter taxonomy.
func (p *chatProvider) Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error {
	reqBody := chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	}
	if p.name == ProviderOpenAI {
		reqBody.MaxCompletionTokens = maxCompletionTokens
	} else {
		reqBody.MaxTokens = maxCompletionTokens
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classifyTransport(p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(p.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return p.consumeStream(ctx, resp.Body, onDelta)
}

// consumeStream reads upstream SSE chunks and forwards content deltas. A
// single unparseable chunk is logged and skipped; it never kills the stream.
func (p *chatProvider) consumeStream(ctx context.Context, body io.Reader, onDelta func(string) error) error {
	var decoder stream.Decoder
	buf := make([]byte, 4096)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			payloads, done := decoder.Feed(buf[:n])
			for _, payload := range payloads {
				if err := ctx.Err(); err != nil {
					return err
				}
				var chunk chatStreamChunk
				if err := json.Unmarshal(payload, &chunk); err != nil {
					log.Printf("Skipping malformed %s stream chunk: %v", p.name, err)
					continue
				}
				if len(chunk.Choices) == 0 {
					continue
				}
				content := chunk.Choices[0].Delta.Content
				if content == "" {
					continue
				}
				if err := onDelta(content); err != nil {
					if errors.Is(err, ErrStop) {
						return nil
					}
					return err
				}
			}
			if done {
				return nil
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return classifyTransport(p.name, readErr)
		}
	}
}
