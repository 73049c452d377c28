package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"linguahub/internal/stream"
	"linguahub/models"
	"linguahub/providers"
	"linguahub/utils"
)

// minResponseLength guards against an upstream that closed after emitting
// nothing useful
const minResponseLength = 10

// EventSink receives framed events for one request, in transport order. A
// Send failure means the client is gone; the orchestrator stops emitting.
type EventSink interface {
	Send(event *stream.Event) error
}

// RecordStore persists completed evaluations. Append failures are logged and
// never propagated to the client: by the time the record is written the
// evaluation has already been delivered.
type RecordStore interface {
	AppendPracticeRecord(ctx context.Context, record *models.PracticeRecord) error
}

// Evaluator converts an unstructured token stream into the framed event
// sequence: init, progress frames while deltas arrive, then exactly one
// terminal frame (complete or error). It holds no per-request state; one
// instance serves all concurrent requests.
type Evaluator struct {
	store   RecordStore
	prompts PromptBuilder
}

func NewEvaluator(store RecordStore, prompts PromptBuilder) *Evaluator {
	if prompts == nil {
		prompts = TemplatePromptBuilder{}
	}
	return &Evaluator{store: store, prompts: prompts}
}

// errClientGone marks a sink write failure so it is distinguishable from an
// upstream failure when the provider hands the callback error back.
var errClientGone = errors.New("client disconnected")

// StreamEvaluation runs one streaming evaluation for req and emits frames to
// sink. The returned error is non-nil only when the sink itself failed; all
// other outcomes are reported as frames.
func (ev *Evaluator) StreamEvaluation(ctx context.Context, provider providers.Provider, req models.EvaluationRequest, sink EventSink) error {
	if err := sink.Send(stream.NewInitEvent(req.TextID, "Starting AI evaluation...")); err != nil {
		return err
	}

	prompt := ev.prompts.BuildEvaluationPrompt(req.UserInput)
	collected, streamErr := runStructuredStream(ctx, provider, prompt, newEvaluationTracker(), tryExtractEvaluationRaw, sink)
	if errors.Is(streamErr, errClientGone) {
		return streamErr
	}

	if result, ok := tryExtractEvaluation(collected); ok && streamErr == nil {
		ev.persistRecord(ctx, req, result)
		event, err := stream.NewCompleteEvent(result)
		if err != nil {
			return sink.Send(stream.NewErrorEvent("failed to encode evaluation result"))
		}
		return sink.Send(event)
	}

	return sink.Send(stream.NewErrorEvent(failureMessage(streamErr, collected)))
}

// StreamEssay runs one streaming essay generation over the same protocol.
// Essay results are not persisted; material storage is owned elsewhere.
func (ev *Evaluator) StreamEssay(ctx context.Context, provider providers.Provider, req models.EssayRequest, sink EventSink) error {
	if err := sink.Send(stream.NewInitEvent("", "Starting essay generation...")); err != nil {
		return err
	}

	prompt := ev.prompts.BuildEssayPrompt(req)
	collected, streamErr := runStructuredStream(ctx, provider, prompt, newEssayTracker(), tryExtractEssayRaw, sink)
	if errors.Is(streamErr, errClientGone) {
		return streamErr
	}

	if result, ok := tryExtractEssay(collected); ok && streamErr == nil {
		event, err := stream.NewCompleteEvent(result)
		if err != nil {
			return sink.Send(stream.NewErrorEvent("failed to encode essay result"))
		}
		return sink.Send(event)
	}

	return sink.Send(stream.NewErrorEvent(failureMessage(streamErr, collected)))
}

// Evaluate is the non-streaming variant: the whole upstream response is
// collected before extraction. Used by the synchronous submit endpoint.
func (ev *Evaluator) Evaluate(ctx context.Context, provider providers.Provider, req models.EvaluationRequest) (*models.Evaluation, error) {
	prompt := ev.prompts.BuildEvaluationPrompt(req.UserInput)

	var collected strings.Builder
	err := provider.Stream(ctx, prompt, func(delta string) error {
		collected.WriteString(delta)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, ok := tryExtractEvaluation(collected.String())
	if !ok {
		return nil, &providers.UpstreamError{
			Provider: provider.Name(),
			Message:  "response is not a valid evaluation result",
			Err:      providers.ErrMalformed,
		}
	}
	ev.persistRecord(ctx, req, result)
	return result, nil
}

// runStructuredStream drives the provider, emitting a progress frame per
// delta until extract succeeds on the accumulated text, then stops consuming.
// It returns the accumulated text and the provider error, with sink failures
// wrapped as errClientGone.
func runStructuredStream(ctx context.Context, provider providers.Provider, prompt string, tracker *progressTracker, extract func(string) bool, sink EventSink) (string, error) {
	var collected strings.Builder

	streamErr := provider.Stream(ctx, prompt, func(delta string) error {
		collected.WriteString(delta)
		full := collected.String()
		if extract(full) {
			return providers.ErrStop
		}
		progress := tracker.Advance(full)
		if err := sink.Send(stream.NewProgressEvent(progress, PhaseFor(progress), delta, full)); err != nil {
			return fmt.Errorf("%w: %v", errClientGone, err)
		}
		return nil
	})
	return collected.String(), streamErr
}

func (ev *Evaluator) persistRecord(ctx context.Context, req models.EvaluationRequest, result *models.Evaluation) {
	if ev.store == nil {
		return
	}
	record := &models.PracticeRecord{
		TextID:    req.TextID,
		UserInput: req.UserInput,
		Result:    *result,
		CreatedAt: time.Now().Unix(),
	}
	if err := ev.store.AppendPracticeRecord(ctx, record); err != nil {
		log.Printf("Failed to save practice record for text %s: %v", req.TextID, err)
	}
}

var requiredEvaluationFields = []string{"score", "corrections", "overall_feedback", "is_acceptable"}

// tryExtractEvaluation attempts to parse the accumulated text as a complete
// Evaluation. The brace-balance check gates the full parse so certainly
// incomplete JSON is not parsed on every delta.
func tryExtractEvaluation(content string) (*models.Evaluation, bool) {
	raw, ok := extractCandidate(content, requiredEvaluationFields)
	if !ok {
		return nil, false
	}
	var eval models.Evaluation
	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		return nil, false
	}
	if eval.Validate() != nil {
		return nil, false
	}
	eval.Normalize()
	return &eval, true
}

func tryExtractEvaluationRaw(content string) bool {
	_, ok := tryExtractEvaluation(content)
	return ok
}

var requiredEssayFields = []string{"english_essay", "chinese_translation"}

func tryExtractEssay(content string) (*models.EssayResult, bool) {
	raw, ok := extractCandidate(content, requiredEssayFields)
	if !ok {
		return nil, false
	}
	var essay models.EssayResult
	if err := json.Unmarshal([]byte(raw), &essay); err != nil {
		return nil, false
	}
	if essay.Validate() != nil {
		return nil, false
	}
	return &essay, true
}

func tryExtractEssayRaw(content string) bool {
	_, ok := tryExtractEssay(content)
	return ok
}

// extractCandidate pulls the first JSON object out of content and verifies
// the required fields are all present.
func extractCandidate(content string, requiredFields []string) (string, bool) {
	cleaned := utils.CleanModelOutput(content)
	if !utils.BraceBalanced(cleaned) {
		return "", false
	}
	raw, ok := utils.ExtractJSON(cleaned)
	if !ok {
		return "", false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return "", false
	}
	for _, field := range requiredFields {
		if _, present := probe[field]; !present {
			return "", false
		}
	}
	return raw, true
}

// failureMessage folds a stream outcome into the single human-readable error
// frame the client will see.
func failureMessage(streamErr error, collected string) string {
	switch {
	case streamErr == nil:
		if len(strings.TrimSpace(collected)) < minResponseLength {
			return "AI response was empty or too short"
		}
		return "AI response could not be parsed as a result"
	case errors.Is(streamErr, providers.ErrAuth):
		return "AI provider rejected the API key; check your configuration"
	case errors.Is(streamErr, providers.ErrRateLimited):
		return "AI provider rate limit exceeded; wait a moment before retrying"
	case errors.Is(streamErr, providers.ErrTimeout):
		return "AI provider timed out"
	case errors.Is(streamErr, context.Canceled):
		return "evaluation canceled"
	default:
		return fmt.Sprintf("AI evaluation failed: %v", streamErr)
	}
}
