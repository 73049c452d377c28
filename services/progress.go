package services

import (
	"strings"

	"linguahub/utils"
)

// Evaluation phase names, mapped from progress bands. The heuristic only
// drives the progress indicator; it has no bearing on the evaluation itself.
const (
	PhaseAnalysis  = "analysis"
	PhaseSemantic  = "semantic check"
	PhaseSynthesis = "suggestion synthesis"
	PhaseFinalize  = "finalization"
)

// PhaseFor maps a progress percentage to its evaluation phase:
// [0,25) analysis, [25,50) semantic check, [50,75) suggestion synthesis,
// [75,100] finalization.
func PhaseFor(progress int) string {
	switch {
	case progress < 25:
		return PhaseAnalysis
	case progress < 50:
		return PhaseSemantic
	case progress < 75:
		return PhaseSynthesis
	default:
		return PhaseFinalize
	}
}

// streamingProgressCap keeps heuristic progress below the value reserved for
// a successfully extracted result.
const streamingProgressCap = 90

// progressTracker estimates completion of an in-progress JSON response from
// which expected field names have already appeared. Each field's weight is
// the floor of a progress band; growth of the accumulated text creeps the
// value forward within the band. The returned value never decreases for the
// life of one tracker.
type progressTracker struct {
	weights  map[string]int
	creepDiv int // accumulated chars per extra percent within a band
	last     int
}

func newEvaluationTracker() *progressTracker {
	return &progressTracker{
		weights: map[string]int{
			"score":            25,
			"corrections":      25,
			"overall_feedback": 25,
			"is_acceptable":    25,
		},
		creepDiv: 120,
	}
}

func newEssayTracker() *progressTracker {
	return &progressTracker{
		weights: map[string]int{
			"english_essay":       50,
			"chinese_translation": 50,
		},
		creepDiv: 100,
	}
}

// Advance recomputes progress for the accumulated content and returns the
// monotonically clamped value.
func (t *progressTracker) Advance(content string) int {
	base := 0
	for field, weight := range t.weights {
		if strings.Contains(content, `"`+field+`"`) {
			base += weight
		}
	}

	creep := len(content) / t.creepDiv
	if creep > 24 {
		creep = 24
	}
	progress := base + creep

	if utils.BraceBalanced(content) {
		progress += 10
	}
	if progress > streamingProgressCap {
		progress = streamingProgressCap
	}

	if progress < t.last {
		return t.last
	}
	t.last = progress
	return progress
}
