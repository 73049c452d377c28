package routes

import (
	"linguahub/websocket"

	"github.com/gin-gonic/gin"
)

// SetupWebsocketRoutes sets up the websocket mirror of the streaming
// submission endpoint. Provider config travels in the first socket message,
// not in headers, so the AI config middleware does not apply here.
func SetupWebsocketRoutes(router *gin.RouterGroup, ph *websocket.PracticeHandler) {
	router.GET("/texts/practice/submit-ws", ph.Handle)
}
