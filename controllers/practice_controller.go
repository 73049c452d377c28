package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"linguahub/internal/ratelimit"
	"linguahub/internal/stream"
	"linguahub/middlewares"
	"linguahub/models"
	"linguahub/providers"
	"linguahub/services"

	"github.com/gin-gonic/gin"
)

const historyLimit = 100

// HistoryStore is the read side of the persistence collaborator
type HistoryStore interface {
	ListPracticeRecords(ctx context.Context, limit int64) ([]models.PracticeRecord, error)
	ListPracticeRecordsByText(ctx context.Context, textID string) ([]models.PracticeRecord, error)
}

// PracticeController handles practice submission and history endpoints
type PracticeController struct {
	evaluator *services.Evaluator
	history   HistoryStore
	limiter   *ratelimit.Limiter
}

func NewPracticeController(evaluator *services.Evaluator, history HistoryStore, limiter *ratelimit.Limiter) *PracticeController {
	return &PracticeController{evaluator: evaluator, history: history, limiter: limiter}
}

type practiceSubmitRequest struct {
	TextID    string `json:"text_id" binding:"required"`
	UserInput string `json:"user_input" binding:"required"`
}

// sseSink frames orchestrator events as server-sent events
type sseSink struct {
	w *stream.Writer
}

func (s sseSink) Send(event *stream.Event) error {
	return s.w.WriteEvent(event)
}

// SubmitPracticeStream runs a streaming evaluation. The response body is an
// SSE stream of init/progress frames, exactly one terminal frame, then the
// [DONE] sentinel.
func (pc *PracticeController) SubmitPracticeStream(c *gin.Context) {
	var req practiceSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	provider, ok := buildProvider(c, pc.limiter)
	if !ok {
		return
	}

	writer := stream.NewWriter(c.Writer)
	request := models.EvaluationRequest{TextID: req.TextID, UserInput: req.UserInput}

	err := pc.evaluator.StreamEvaluation(c.Request.Context(), provider, request, sseSink{w: writer})
	if err != nil {
		// Client went away mid-stream; nothing left to deliver
		log.Printf("Evaluation stream for text %s aborted: %v", req.TextID, err)
		return
	}
	if err := writer.WriteDone(); err != nil {
		log.Printf("Failed to write stream sentinel: %v", err)
	}
}

// SubmitPractice is the synchronous variant: the full evaluation is returned
// in one JSON envelope.
func (pc *PracticeController) SubmitPractice(c *gin.Context) {
	var req practiceSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	provider, ok := buildProvider(c, pc.limiter)
	if !ok {
		return
	}

	request := models.EvaluationRequest{TextID: req.TextID, UserInput: req.UserInput}
	result, err := pc.evaluator.Evaluate(c.Request.Context(), provider, request)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, providers.ErrAuth):
			status = http.StatusUnauthorized
		case errors.Is(err, providers.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, providers.ErrTimeout):
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, models.APIResponse{Success: false, Message: "Practice evaluation failed", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: result, Message: "Evaluation completed"})
}

// GetPracticeHistory returns the most recent practice records
func (pc *PracticeController) GetPracticeHistory(c *gin.Context) {
	records, err := pc.history.ListPracticeRecords(c.Request.Context(), historyLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.APIResponse{Success: false, Message: "Failed to get history", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    records,
		Message: fmt.Sprintf("Retrieved %d history records", len(records)),
	})
}

// GetTextPracticeHistory returns the practice history for one study text
func (pc *PracticeController) GetTextPracticeHistory(c *gin.Context) {
	textID := c.Param("textId")
	records, err := pc.history.ListPracticeRecordsByText(c.Request.Context(), textID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.APIResponse{Success: false, Message: "Failed to get text practice history", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    records,
		Message: fmt.Sprintf("Retrieved %d practice records for this text", len(records)),
	})
}

// buildProvider assembles the per-request provider from header config,
// applying the submission rate limit first. Writes the HTTP error response
// itself when it returns false.
func buildProvider(c *gin.Context, limiter *ratelimit.Limiter) (providers.Provider, bool) {
	cfg := middlewares.AIConfig(c)

	allowed, err := limiter.Allow(c.Request.Context(), cfg.APIKey)
	if err != nil {
		log.Printf("Rate limit check failed, allowing request: %v", err)
	} else if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many submissions; slow down"})
		return nil, false
	}

	provider, err := providers.New(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return provider, true
}
