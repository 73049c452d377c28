package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"linguahub/internal/stream"
	"linguahub/models"
	"linguahub/providers"
)

// Transient failures that drive the retry policy. A server-issued error
// frame is authoritative and never retried.
var (
	ErrNetwork = errors.New("stream connection failed")
	ErrStuck   = errors.New("stream stalled")
)

// ServerError carries the message of a terminal error frame
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

const (
	maxRetries = 2
	retryDelay = 2 * time.Second
)

// Clock abstracts time so stall and retry behavior is testable without real
// timers.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Client consumes the streaming evaluation endpoint. It owns the state for
// exactly one in-flight submission at a time; callers must not start a
// second submission while one is active.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Provider   providers.Config

	// OnState, when set, observes every state change. It never fires after
	// the submission's context is cancelled.
	OnState func(State)

	clock Clock
}

// New creates a Client for the given server and provider configuration
func New(baseURL string, provider providers.Config) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Provider:   provider,
		clock:      systemClock{},
	}
}

type submitPayload struct {
	TextID    string `json:"text_id"`
	UserInput string `json:"user_input"`
}

// SubmitPractice runs one logical submission to completion: up to three
// attempts, retrying only on connection failures and stalls, with a fixed
// delay between attempts and progress starting over per attempt. The
// returned State is terminal unless the context was cancelled.
func (c *Client) SubmitPractice(ctx context.Context, textID, userInput string) (State, error) {
	body, err := json.Marshal(submitPayload{TextID: textID, UserInput: userInput})
	if err != nil {
		return NewState().Failed(err.Error()), err
	}

	state := NewState().Submitting()
	c.notify(ctx, state)

	for {
		state = state.BeginAttempt(c.clock.Now())
		c.notify(ctx, state)

		state, err = c.runAttempt(ctx, state, body)
		if ctx.Err() != nil {
			// Cancelled: discard the state, fire no callbacks.
			return state, ctx.Err()
		}
		if err == nil {
			return state, nil
		}

		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			if state.Phase != PhaseFailed {
				state = state.Failed(serverErr.Message)
				c.notify(ctx, state)
			}
			return state, err
		}
		if !errors.Is(err, ErrNetwork) && !errors.Is(err, ErrStuck) {
			state = state.Failed(err.Error())
			c.notify(ctx, state)
			return state, err
		}
		if state.RetryCount >= maxRetries {
			state = state.Failed(err.Error())
			c.notify(ctx, state)
			return state, err
		}

		state = state.Retrying()
		c.notify(ctx, state)

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-c.clock.After(retryDelay):
		}
	}
}

// runAttempt performs one HTTP exchange and consumes its frame stream until
// a terminal frame, a stall, or a transport failure.
func (c *Client) runAttempt(ctx context.Context, state State, body []byte) (State, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.BaseURL+"/api/texts/practice/submit-stream", bytes.NewReader(body))
	if err != nil {
		return state, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AI-Provider", c.Provider.Provider)
	req.Header.Set("X-AI-Key", c.Provider.APIKey)
	if c.Provider.BaseURL != "" {
		req.Header.Set("X-AI-Base-URL", c.Provider.BaseURL)
	}
	if c.Provider.Model != "" {
		req.Header.Set("X-AI-Model", c.Provider.Model)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		return state, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Pre-stream rejection (missing config, rate limit) is authoritative.
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return state, &ServerError{Message: rejectionMessage(resp.StatusCode, payload)}
	}

	return c.consume(attemptCtx, state, resp.Body)
}

type readResult struct {
	chunk []byte
	err   error
}

// consume races the stream's next chunk against the stall deadline. The read
// goroutine exits when the body is closed, which both cancellation and stall
// teardown trigger via the deferred request cancel.
func (c *Client) consume(ctx context.Context, state State, r io.Reader) (State, error) {
	reads := make(chan readResult)
	go func() {
		for {
			buf := make([]byte, 4096)
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case reads <- readResult{chunk: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case reads <- readResult{err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	var decoder stream.Decoder
	for {
		wait := state.StallDeadline().Sub(c.clock.Now())
		if wait <= 0 {
			return state, ErrStuck
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-c.clock.After(wait):
			if !c.clock.Now().Before(state.StallDeadline()) {
				return state, ErrStuck
			}
		case res := <-reads:
			if res.err != nil {
				if state.Terminal() {
					return state, nil
				}
				return state, fmt.Errorf("%w: %v", ErrNetwork, res.err)
			}

			payloads, done := decoder.Feed(res.chunk)
			for _, payload := range payloads {
				event, err := stream.UnmarshalEvent(payload)
				if err != nil {
					log.Printf("Skipping malformed frame: %v", err)
					continue
				}
				state = c.applyFrame(ctx, state, event)
			}
			if state.Phase == PhaseFailed {
				return state, &ServerError{Message: state.Err}
			}
			if done || state.Phase == PhaseCompleted {
				if state.Phase != PhaseCompleted {
					return state, fmt.Errorf("%w: stream ended without a terminal frame", ErrNetwork)
				}
				return state, nil
			}
		}
	}
}

func (c *Client) applyFrame(ctx context.Context, state State, event *stream.Event) State {
	state = state.ApplyEvent(event, c.clock.Now())
	if event.Type == stream.TypeComplete && len(event.Result) > 0 {
		var result models.Evaluation
		if err := json.Unmarshal(event.Result, &result); err == nil {
			state.Result = &result
		}
	}
	c.notify(ctx, state)
	return state
}

func (c *Client) notify(ctx context.Context, state State) {
	if ctx.Err() != nil {
		return
	}
	if c.OnState != nil {
		c.OnState(state)
	}
}

func rejectionMessage(status int, payload []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("server rejected submission with status %d", status)
}
