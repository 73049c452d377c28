package controllers

import (
	"log"
	"net/http"

	"linguahub/internal/ratelimit"
	"linguahub/internal/stream"
	"linguahub/models"
	"linguahub/services"

	"github.com/gin-gonic/gin"
)

// EssayController handles streaming essay generation
type EssayController struct {
	evaluator *services.Evaluator
	limiter   *ratelimit.Limiter
}

func NewEssayController(evaluator *services.Evaluator, limiter *ratelimit.Limiter) *EssayController {
	return &EssayController{evaluator: evaluator, limiter: limiter}
}

type essayGenerateRequest struct {
	Topic        string `json:"topic" binding:"required"`
	ExamType     string `json:"exam_type" binding:"required"`
	Requirements string `json:"requirements"`
}

// GenerateEssayStream streams a model essay over the same framed protocol as
// practice evaluation, with the essay result shape in the complete frame.
func (ec *EssayController) GenerateEssayStream(c *gin.Context) {
	var req essayGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	provider, ok := buildProvider(c, ec.limiter)
	if !ok {
		return
	}

	writer := stream.NewWriter(c.Writer)
	request := models.EssayRequest{Topic: req.Topic, ExamType: req.ExamType, Requirements: req.Requirements}

	err := ec.evaluator.StreamEssay(c.Request.Context(), provider, request, sseSink{w: writer})
	if err != nil {
		log.Printf("Essay stream aborted: %v", err)
		return
	}
	if err := writer.WriteDone(); err != nil {
		log.Printf("Failed to write stream sentinel: %v", err)
	}
}
