package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linguahub/internal/stream"
	"linguahub/middlewares"
	"linguahub/models"
	"linguahub/services"

	"github.com/gin-gonic/gin"
)

type fakeHistory struct {
	records []models.PracticeRecord
}

func (f *fakeHistory) ListPracticeRecords(ctx context.Context, limit int64) ([]models.PracticeRecord, error) {
	return f.records, nil
}

func (f *fakeHistory) ListPracticeRecordsByText(ctx context.Context, textID string) ([]models.PracticeRecord, error) {
	var out []models.PracticeRecord
	for _, r := range f.records {
		if r.TextID == textID {
			out = append(out, r)
		}
	}
	return out, nil
}

// newUpstream fakes an OpenAI-compatible completions endpoint that streams
// the given deltas.
func newUpstream(deltas ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestRouter(history HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	evaluator := services.NewEvaluator(nil, nil)
	pc := NewPracticeController(evaluator, history, nil)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/texts/practice/history", pc.GetPracticeHistory)
	api.GET("/texts/:textId/practice/history", pc.GetTextPracticeHistory)
	submit := api.Group("/texts/practice", middlewares.AIConfigMiddleware())
	submit.POST("/submit-stream", pc.SubmitPracticeStream)
	submit.POST("/submit", pc.SubmitPractice)
	return router
}

func submitRequest(upstreamURL, body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/texts/practice/submit-stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AI-Provider", "deepseek")
	req.Header.Set("X-AI-Key", "test-key")
	req.Header.Set("X-AI-Base-URL", upstreamURL)
	return req
}

func TestSubmitStreamEndToEnd(t *testing.T) {
	upstream := newUpstream(
		"Analyzing grammar...",
		`{"score":85,`,
		`"corrections":[],"overall_feedback":"Good job","is_acceptable":true}`,
	)
	defer upstream.Close()

	router := newTestRouter(&fakeHistory{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, submitRequest(upstream.URL, `{"text_id":"t1","user_input":"hello"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	var d stream.Decoder
	payloads, done := d.Feed(rec.Body.Bytes())
	if !done {
		t.Error("Stream should end with the [DONE] sentinel")
	}
	if len(payloads) == 0 {
		t.Fatal("Expected at least one frame")
	}

	terminals := 0
	var last *stream.Event
	for _, p := range payloads {
		event, err := stream.UnmarshalEvent(p)
		if err != nil {
			t.Fatalf("Frame is not a valid event: %v", err)
		}
		if event.IsTerminal() {
			terminals++
		}
		last = event
	}
	if terminals != 1 {
		t.Errorf("Expected exactly 1 terminal frame, got %d", terminals)
	}
	if last.Type != stream.TypeComplete {
		t.Fatalf("Last frame = %s, want complete (%s)", last.Type, last.Error)
	}

	var result models.Evaluation
	if err := json.Unmarshal(last.Result, &result); err != nil {
		t.Fatalf("Result is not a valid evaluation: %v", err)
	}
	if result.Score != 85 || !result.IsAcceptable {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestSubmitStreamMissingConfig(t *testing.T) {
	router := newTestRouter(&fakeHistory{})

	req := httptest.NewRequest("POST", "/api/texts/practice/submit-stream", strings.NewReader(`{"text_id":"t","user_input":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 before any stream is opened", rec.Code)
	}
	if strings.Contains(rec.Header().Get("Content-Type"), "text/event-stream") {
		t.Error("No stream may be opened when config is missing")
	}
}

func TestSubmitStreamUpstreamAuthFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer upstream.Close()

	router := newTestRouter(&fakeHistory{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, submitRequest(upstream.URL, `{"text_id":"t","user_input":"x"}`))

	var d stream.Decoder
	payloads, _ := d.Feed(rec.Body.Bytes())
	if len(payloads) == 0 {
		t.Fatal("Expected frames on the stream")
	}
	last, err := stream.UnmarshalEvent(payloads[len(payloads)-1])
	if err != nil {
		t.Fatalf("Last frame invalid: %v", err)
	}
	if last.Type != stream.TypeError {
		t.Errorf("Last frame = %s, want error", last.Type)
	}
}

func TestSubmitSync(t *testing.T) {
	upstream := newUpstream(`{"score":60,"corrections":[],"overall_feedback":"ok","is_acceptable":false}`)
	defer upstream.Close()

	router := newTestRouter(&fakeHistory{})

	req := httptest.NewRequest("POST", "/api/texts/practice/submit", strings.NewReader(`{"text_id":"t","user_input":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AI-Provider", "deepseek")
	req.Header.Set("X-AI-Key", "test-key")
	req.Header.Set("X-AI-Base-URL", upstream.URL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool              `json:"success"`
		Data    models.Evaluation `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Response is not a valid envelope: %v", err)
	}
	if !envelope.Success || envelope.Data.Score != 60 {
		t.Errorf("Unexpected envelope: %+v", envelope)
	}
}

func TestSubmitInvalidPayload(t *testing.T) {
	router := newTestRouter(&fakeHistory{})

	req := httptest.NewRequest("POST", "/api/texts/practice/submit", strings.NewReader(`{"text_id":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AI-Provider", "deepseek")
	req.Header.Set("X-AI-Key", "test-key")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 for a payload missing required fields", rec.Code)
	}
}

func TestPracticeHistory(t *testing.T) {
	history := &fakeHistory{records: []models.PracticeRecord{
		{TextID: "a", UserInput: "one"},
		{TextID: "b", UserInput: "two"},
	}}
	router := newTestRouter(history)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/texts/practice/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var envelope struct {
		Success bool                    `json:"success"`
		Data    []models.PracticeRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Response is not a valid envelope: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Errorf("Expected 2 records, got %d", len(envelope.Data))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/texts/b/practice/history", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Response is not a valid envelope: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].TextID != "b" {
		t.Errorf("Unexpected per-text records: %+v", envelope.Data)
	}
}
