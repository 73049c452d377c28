package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Correction is a single suggested fix in an evaluation
type Correction struct {
	Original   string `json:"original" bson:"original"`
	Suggestion string `json:"suggestion" bson:"suggestion"`
	Reason     string `json:"reason" bson:"reason"`
}

// Evaluation is the structured result extracted from the model's streamed output
type Evaluation struct {
	Score           int          `json:"score" bson:"score"`
	Corrections     []Correction `json:"corrections" bson:"corrections"`
	OverallFeedback string       `json:"overall_feedback" bson:"overallFeedback"`
	IsAcceptable    bool         `json:"is_acceptable" bson:"isAcceptable"`
}

// Normalize clamps the score into [0,100] and replaces a nil corrections
// slice so the wire shape is always a JSON array.
func (e *Evaluation) Normalize() {
	if e.Score < 0 {
		e.Score = 0
	}
	if e.Score > 100 {
		e.Score = 100
	}
	if e.Corrections == nil {
		e.Corrections = []Correction{}
	}
}

// Validate checks that an extracted evaluation carries the required fields.
// OverallFeedback is the only field whose zero value is indistinguishable
// from "missing", so it is the one checked.
func (e *Evaluation) Validate() error {
	if e.OverallFeedback == "" {
		return fmt.Errorf("evaluation missing overall_feedback")
	}
	return nil
}

// EvaluationRequest identifies one submission: the study text it answers and
// the user's attempt. Immutable for the life of the request.
type EvaluationRequest struct {
	TextID    string `json:"textId" bson:"textId"`
	UserInput string `json:"userInput" bson:"userInput"`
}

// PracticeRecord is the persisted outcome of one completed evaluation
type PracticeRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TextID    string             `json:"textId" bson:"textId"`
	UserInput string             `json:"userInput" bson:"userInput"`
	Result    Evaluation         `json:"result" bson:"result"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt"`
}
