package services

import "testing"

func TestPhaseFor(t *testing.T) {
	cases := []struct {
		progress int
		want     string
	}{
		{0, PhaseAnalysis},
		{24, PhaseAnalysis},
		{25, PhaseSemantic},
		{49, PhaseSemantic},
		{50, PhaseSynthesis},
		{74, PhaseSynthesis},
		{75, PhaseFinalize},
		{100, PhaseFinalize},
	}
	for _, tc := range cases {
		if got := PhaseFor(tc.progress); got != tc.want {
			t.Errorf("PhaseFor(%d) = %q, want %q", tc.progress, got, tc.want)
		}
	}
}

func TestTrackerMonotonic(t *testing.T) {
	tracker := newEvaluationTracker()

	// Accumulated content only grows, but the heuristic must hold even if a
	// later snapshot happens to score lower than an earlier one.
	snapshots := []string{
		`Analyzing`,
		`Analyzing {"score":85,"corrections":[],`,
		`Analyzing {"score":85,"corrections":[],"overall_feedback":"ok",`,
		`Analyzing {"score":85,"corrections":[],"overall_feedback":"ok","is_acceptable":`,
	}

	last := -1
	for _, content := range snapshots {
		got := tracker.Advance(content)
		if got < last {
			t.Errorf("Progress regressed from %d to %d at content %q", last, got, content)
		}
		if got > 90 {
			t.Errorf("Streaming progress exceeded the cap: %d", got)
		}
		last = got
	}
}

func TestTrackerNeverRegressesOnShrink(t *testing.T) {
	tracker := newEvaluationTracker()

	high := tracker.Advance(`{"score":85,"corrections":[],"overall_feedback":"ok","is_acceptable":true}`)
	low := tracker.Advance(`{"score":`)
	if low < high {
		t.Errorf("Tracker returned %d after %d; values must never decrease", low, high)
	}
}

func TestTrackerFieldWeights(t *testing.T) {
	tracker := newEvaluationTracker()

	got := tracker.Advance(`{"score":85}`)
	if got < 25 {
		t.Errorf("One field present should reach its band floor, got %d", got)
	}
	if got >= 50 {
		t.Errorf("One short field should stay in its band, got %d", got)
	}
}

func TestEssayTrackerBands(t *testing.T) {
	tracker := newEssayTracker()

	got := tracker.Advance(`{"english_essay":"Once upon a time`)
	if got < 50 {
		t.Errorf("Essay field present should reach 50, got %d", got)
	}
	if got > 90 {
		t.Errorf("Streaming progress exceeded the cap: %d", got)
	}
}
