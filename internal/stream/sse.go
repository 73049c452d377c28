package stream

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// doneSentinel is the literal payload marking end-of-stream
const doneSentinel = "[DONE]"

var (
	dataPrefix     = []byte("data: ")
	frameSeparator = []byte("\n\n")
)

// Writer frames events as server-sent events on an HTTP response. Each event
// becomes a single `data: <json>` line followed by a blank line.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps an http.ResponseWriter for SSE output and sets the
// event-stream headers. Flushing is best-effort: a ResponseWriter that does
// not implement http.Flusher still receives well-formed frames.
func NewWriter(w http.ResponseWriter) *Writer {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent serializes and flushes one frame
func (sw *Writer) WriteEvent(event *Event) error {
	payload, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return sw.writeFrame(payload)
}

// WriteDone emits the end-of-stream sentinel frame
func (sw *Writer) WriteDone() error {
	return sw.writeFrame([]byte(doneSentinel))
}

func (sw *Writer) writeFrame(payload []byte) error {
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Decoder reassembles SSE frames from arbitrary network chunks. A payload
// split across two chunks is buffered and prepended to the next chunk before
// re-splitting on blank-line boundaries.
type Decoder struct {
	buf  bytes.Buffer
	done bool
}

// Feed appends a chunk and returns every complete data payload it closes,
// in transport order. done reports that the [DONE] sentinel was seen; no
// payloads follow it.
func (d *Decoder) Feed(chunk []byte) (payloads [][]byte, done bool) {
	if d.done {
		return nil, true
	}
	d.buf.Write(chunk)

	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, frameSeparator)
		if idx < 0 {
			break
		}
		frame := make([]byte, idx)
		copy(frame, raw[:idx])
		d.buf.Next(idx + len(frameSeparator))

		payload, ok := extractPayload(frame)
		if !ok {
			continue
		}
		if bytes.Equal(payload, []byte(doneSentinel)) {
			d.done = true
			return payloads, true
		}
		payloads = append(payloads, payload)
	}
	return payloads, false
}

// extractPayload pulls the data payload out of one frame. Multi-line frames
// are not produced by this protocol; only the first data line is used.
func extractPayload(frame []byte) ([]byte, bool) {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if bytes.HasPrefix(line, dataPrefix) {
			return bytes.TrimPrefix(line, dataPrefix), true
		}
	}
	return nil, false
}
