package middlewares

import (
	"net/http"

	"linguahub/providers"

	"github.com/gin-gonic/gin"
)

const aiConfigKey = "aiConfig"

// AIConfigMiddleware extracts the per-request AI provider configuration from
// headers and rejects the request before any upstream call is attempted when
// provider or API key is missing. The config lives only for this request.
func AIConfigMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.GetHeader("X-AI-Provider")
		apiKey := c.GetHeader("X-AI-Key")

		if provider == "" || apiKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please configure AI service (provider and API key) first"})
			c.Abort()
			return
		}

		c.Set(aiConfigKey, providers.Config{
			Provider: provider,
			APIKey:   apiKey,
			BaseURL:  c.GetHeader("X-AI-Base-URL"),
			Model:    c.GetHeader("X-AI-Model"),
		})
		c.Next()
	}
}

// AIConfig returns the provider configuration set by AIConfigMiddleware
func AIConfig(c *gin.Context) providers.Config {
	cfg, _ := c.Get(aiConfigKey)
	config, _ := cfg.(providers.Config)
	return config
}
