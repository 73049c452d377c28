package routes

import (
	"linguahub/controllers"
	"linguahub/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupPracticeRoutes sets up the practice submission and history routes.
// Submission routes require per-request AI provider headers; history reads
// do not touch the upstream model and skip that check.
func SetupPracticeRoutes(router *gin.RouterGroup, pc *controllers.PracticeController) {
	texts := router.Group("/texts")
	{
		texts.GET("/practice/history", pc.GetPracticeHistory)
		texts.GET("/:textId/practice/history", pc.GetTextPracticeHistory)

		submit := texts.Group("/practice", middlewares.AIConfigMiddleware())
		{
			submit.POST("/submit-stream", pc.SubmitPracticeStream)
			submit.POST("/submit", pc.SubmitPractice)
		}
	}
}
