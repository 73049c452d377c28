package routes

import (
	"linguahub/controllers"
	"linguahub/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupEssayRoutes sets up the streaming essay generation route
func SetupEssayRoutes(router *gin.RouterGroup, ec *controllers.EssayController) {
	essays := router.Group("/essays", middlewares.AIConfigMiddleware())
	{
		essays.POST("/generate-stream", ec.GenerateEssayStream)
	}
}
