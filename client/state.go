package client

import (
	"time"

	"linguahub/internal/stream"
	"linguahub/models"
)

// Phase is the lifecycle position of one logical submission
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseStreaming  Phase = "streaming"
	PhaseRetrying   Phase = "retrying"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

const (
	// noFrameTimeout is the longest gap between any two frames before the
	// stream counts as stalled.
	noFrameTimeout = 20 * time.Second

	// Once progress reaches tailProgressFloor the stream is expected to
	// finish soon, so the deadline tightens: a new distinct progress value
	// must arrive within tailStallTimeout.
	tailStallTimeout  = 15 * time.Second
	tailProgressFloor = 90
)

// State is the consumer's view of one submission. Transitions are pure
// functions of (State, input, now); the caller owns the single mutable copy.
type State struct {
	Phase        Phase
	LastProgress int
	RetryCount   int
	LastEventAt  time.Time

	// LastDistinctAt is when LastProgress last changed value, which is what
	// the tail stall deadline is measured from.
	LastDistinctAt time.Time

	Result *models.Evaluation
	Err    string
}

// NewState returns the idle state for a fresh submission
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Submitting marks the request as opened but not yet streaming
func (s State) Submitting() State {
	s.Phase = PhaseSubmitting
	return s
}

// BeginAttempt resets per-attempt fields at the start of each attempt.
// Progress starts over; RetryCount carries across attempts.
func (s State) BeginAttempt(now time.Time) State {
	s.Phase = PhaseStreaming
	s.LastProgress = 0
	s.LastEventAt = now
	s.LastDistinctAt = now
	return s
}

// Retrying records one consumed retry before the next attempt begins
func (s State) Retrying() State {
	s.Phase = PhaseRetrying
	s.RetryCount++
	return s
}

// Failed is the terminal failure state
func (s State) Failed(message string) State {
	s.Phase = PhaseFailed
	s.Err = message
	return s
}

// ApplyEvent folds one decoded frame into the state. Progress only ever
// moves forward: an incoming value below LastProgress is clamped, not
// applied. Terminal frames move the phase; the caller decides what happens
// next.
func (s State) ApplyEvent(event *stream.Event, now time.Time) State {
	s.LastEventAt = now

	switch event.Type {
	case stream.TypeInit:
		// Progress stays at 0; the frame only proves the stream is alive.
	case stream.TypeProgress:
		if event.Progress > s.LastProgress {
			s.LastProgress = event.Progress
			s.LastDistinctAt = now
		}
	case stream.TypeComplete:
		s.LastProgress = 100
		s.LastDistinctAt = now
		s.Phase = PhaseCompleted
	case stream.TypeError:
		s.Phase = PhaseFailed
		s.Err = event.Error
	}
	return s
}

// StallDeadline is the instant at which the stream counts as stalled if no
// qualifying frame has arrived: any frame resets the 20s window, and past
// 90% progress a distinct progress value must arrive within 15s.
func (s State) StallDeadline() time.Time {
	deadline := s.LastEventAt.Add(noFrameTimeout)
	if s.LastProgress >= tailProgressFloor {
		if tail := s.LastDistinctAt.Add(tailStallTimeout); tail.Before(deadline) {
			deadline = tail
		}
	}
	return deadline
}

// Terminal reports whether the submission has reached its final phase
func (s State) Terminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}
