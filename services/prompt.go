package services

import (
	"fmt"
	"strings"

	"linguahub/models"
)

// PromptBuilder renders provider prompts for submissions. Implementations
// are pure and synchronous.
type PromptBuilder interface {
	BuildEvaluationPrompt(userText string) string
	BuildEssayPrompt(req models.EssayRequest) string
}

// TemplatePromptBuilder is the built-in prompt renderer
type TemplatePromptBuilder struct{}

func (TemplatePromptBuilder) BuildEvaluationPrompt(userText string) string {
	var sb strings.Builder
	sb.WriteString("You are a professional English teaching assistant helping Chinese students practice English.\n")
	sb.WriteString("Evaluate the student's English sentence below for grammar, word choice and naturalness.\n\n")
	sb.WriteString(fmt.Sprintf("Student's sentence: %s\n\n", userText))
	sb.WriteString(`Return STRICT JSON only, with this exact shape:
{
  "score": <integer 0-100>,
  "corrections": [{"original": "text", "suggestion": "text", "reason": "text"}],
  "overall_feedback": "text",
  "is_acceptable": <true if grammar and meaning are basically correct>
}

Provide ONLY the JSON output without any additional text.`)
	return sb.String()
}

func (TemplatePromptBuilder) BuildEssayPrompt(req models.EssayRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a model %s essay on the topic: %s\n", req.ExamType, req.Topic))
	if req.Requirements != "" {
		sb.WriteString(fmt.Sprintf("Additional requirements: %s\n", req.Requirements))
	}
	sb.WriteString(`
Return STRICT JSON only, with this exact shape:
{
  "english_essay": "the full essay text",
  "chinese_translation": "the full Chinese translation"
}

Provide ONLY the JSON output without any additional text.`)
	return sb.String()
}
