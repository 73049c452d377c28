package stream

import (
	"encoding/json"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		event    *Event
		terminal bool
	}{
		{NewInitEvent("t", "m"), false},
		{NewProgressEvent(50, "semantic check", "c", ""), false},
		{NewErrorEvent("boom"), true},
	}
	for _, tc := range cases {
		if got := tc.event.IsTerminal(); got != tc.terminal {
			t.Errorf("IsTerminal for %s = %v, want %v", tc.event.Type, got, tc.terminal)
		}
	}

	complete, err := NewCompleteEvent(map[string]int{"score": 85})
	if err != nil {
		t.Fatalf("NewCompleteEvent failed: %v", err)
	}
	if !complete.IsTerminal() {
		t.Error("Complete event should be terminal")
	}
	if complete.Progress != 100 {
		t.Errorf("Complete event progress = %d, want 100", complete.Progress)
	}
}

func TestCompleteEventCarriesResult(t *testing.T) {
	event, err := NewCompleteEvent(map[string]interface{}{"score": 85, "is_acceptable": true})
	if err != nil {
		t.Fatalf("NewCompleteEvent failed: %v", err)
	}

	payload, err := MarshalEvent(event)
	if err != nil {
		t.Fatalf("MarshalEvent failed: %v", err)
	}

	decoded, err := UnmarshalEvent(payload)
	if err != nil {
		t.Fatalf("UnmarshalEvent failed: %v", err)
	}

	var result struct {
		Score        int  `json:"score"`
		IsAcceptable bool `json:"is_acceptable"`
	}
	if err := json.Unmarshal(decoded.Result, &result); err != nil {
		t.Fatalf("Result payload is not valid JSON: %v", err)
	}
	if result.Score != 85 || !result.IsAcceptable {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestProgressEventOmitsResult(t *testing.T) {
	payload, err := MarshalEvent(NewProgressEvent(10, "analysis", "frag", ""))
	if err != nil {
		t.Fatalf("MarshalEvent failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if _, present := raw["result"]; present {
		t.Error("Progress event should omit the result field")
	}
	if _, present := raw["error"]; present {
		t.Error("Progress event should omit the error field")
	}
}
