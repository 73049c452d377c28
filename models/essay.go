package models

import "fmt"

// EssayResult is the structured result of a streamed essay generation
type EssayResult struct {
	EnglishEssay       string `json:"english_essay" bson:"englishEssay"`
	ChineseTranslation string `json:"chinese_translation" bson:"chineseTranslation"`
}

func (e *EssayResult) Validate() error {
	if e.EnglishEssay == "" {
		return fmt.Errorf("essay result missing english_essay")
	}
	if e.ChineseTranslation == "" {
		return fmt.Errorf("essay result missing chinese_translation")
	}
	return nil
}

// EssayRequest describes one essay generation submission
type EssayRequest struct {
	Topic        string `json:"topic"`
	ExamType     string `json:"examType"`
	Requirements string `json:"requirements,omitempty"`
}
