package stream

import (
	"encoding/json"
)

// Event types carried on the wire. Exactly one terminal event (complete or
// error) is emitted per request, followed by the [DONE] sentinel.
const (
	TypeInit     = "init"
	TypeProgress = "progress"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Event is one frame of the evaluation stream. The Type field discriminates;
// unused fields are omitted from the payload.
type Event struct {
	Type        string          `json:"type"`
	TextID      string          `json:"textId,omitempty"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message,omitempty"`
	Content     string          `json:"content,omitempty"`
	FullContent string          `json:"full_content,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// IsTerminal reports whether no further frames may follow this event
func (e *Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// NewInitEvent creates the opening frame for a submission
func NewInitEvent(textID, message string) *Event {
	return &Event{Type: TypeInit, TextID: textID, Progress: 0, Message: message}
}

// NewProgressEvent creates a progress frame. message names the evaluation
// phase for display; content is the raw text fragment, also display only —
// it is never interpreted as structured data by consumers.
func NewProgressEvent(progress int, message, content, fullContent string) *Event {
	return &Event{Type: TypeProgress, Progress: progress, Message: message, Content: content, FullContent: fullContent}
}

// NewCompleteEvent creates the successful terminal frame carrying the parsed result
func NewCompleteEvent(result interface{}) (*Event, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Event{Type: TypeComplete, Progress: 100, Result: payload}, nil
}

// NewErrorEvent creates the failed terminal frame
func NewErrorEvent(message string) *Event {
	return &Event{Type: TypeError, Error: message}
}

// MarshalEvent marshals an event to its JSON payload
func MarshalEvent(event *Event) ([]byte, error) {
	return json.Marshal(event)
}

// UnmarshalEvent parses a JSON payload into an Event
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
