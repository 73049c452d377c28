package websocket

import (
	"log"
	"net/http"

	"linguahub/internal/ratelimit"
	"linguahub/internal/stream"
	"linguahub/models"
	"linguahub/providers"
	"linguahub/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// practiceSubmitMessage is the first (and only) message the client sends on
// the socket: the provider configuration plus the submission itself.
type practiceSubmitMessage struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	TextID    string `json:"text_id"`
	UserInput string `json:"user_input"`
}

// wsSink frames orchestrator events as websocket JSON messages
type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) Send(event *stream.Event) error {
	return s.conn.WriteJSON(event)
}

// PracticeHandler streams practice evaluations over a websocket. It mirrors
// the SSE endpoint: the same init/progress/terminal frames, then a [DONE]
// text message before the connection closes.
type PracticeHandler struct {
	evaluator *services.Evaluator
	limiter   *ratelimit.Limiter
}

func NewPracticeHandler(evaluator *services.Evaluator, limiter *ratelimit.Limiter) *PracticeHandler {
	return &PracticeHandler{evaluator: evaluator, limiter: limiter}
}

func (h *PracticeHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var msg practiceSubmitMessage
	if err := conn.ReadJSON(&msg); err != nil {
		log.Printf("Failed to read practice submission: %v", err)
		return
	}

	if msg.Provider == "" || msg.APIKey == "" {
		rejectStream(conn, "Please configure AI service (provider and API key) first")
		return
	}

	allowed, err := h.limiter.Allow(c.Request.Context(), msg.APIKey)
	if err != nil {
		log.Printf("Rate limit check failed, allowing request: %v", err)
	} else if !allowed {
		rejectStream(conn, "Too many submissions; slow down")
		return
	}

	provider, err := providers.New(providers.Config{
		Provider: msg.Provider,
		APIKey:   msg.APIKey,
		BaseURL:  msg.BaseURL,
		Model:    msg.Model,
	})
	if err != nil {
		rejectStream(conn, err.Error())
		return
	}

	request := models.EvaluationRequest{TextID: msg.TextID, UserInput: msg.UserInput}
	if err := h.evaluator.StreamEvaluation(c.Request.Context(), provider, request, wsSink{conn: conn}); err != nil {
		log.Printf("Websocket evaluation stream for text %s aborted: %v", msg.TextID, err)
		return
	}

	writeSentinel(conn)
}

// rejectStream delivers a pre-stream rejection over the socket. The sentinel
// still follows the terminal frame so consumers see one uniform protocol.
func rejectStream(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(stream.NewErrorEvent(message)); err != nil {
		log.Printf("Failed to write rejection frame: %v", err)
		return
	}
	writeSentinel(conn)
}

func writeSentinel(conn *websocket.Conn) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte("[DONE]")); err != nil {
		log.Printf("Failed to write stream sentinel: %v", err)
	}
}
