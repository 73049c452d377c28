package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"linguahub/config"
	"linguahub/controllers"
	"linguahub/db"
	"linguahub/internal/ratelimit"
	"linguahub/models"
	"linguahub/routes"
	"linguahub/services"
	"linguahub/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load the configuration from the specified YAML file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB using the URI from the configuration. Without it the
	// server still runs; practice history is just not persisted.
	var store services.RecordStore
	var history controllers.HistoryStore
	if cfg.Database.URI != "" {
		if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		log.Println("Connected to MongoDB")
		store = db.Store{}
		history = db.Store{}
	} else {
		log.Println("No database URI configured, practice history disabled")
		history = emptyHistory{}
	}

	limiter := ratelimit.New(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.RateLimit.MaxSubmissions,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)

	evaluator := services.NewEvaluator(store, nil)

	router := setupRouter(cfg, evaluator, history, limiter)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(cfg *config.Config, evaluator *services.Evaluator, history controllers.HistoryStore, limiter *ratelimit.Limiter) *gin.Engine {
	router := gin.Default()

	// Set trusted proxies (adjust as needed)
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	allowOrigins := cfg.Cors.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-AI-Provider", "X-AI-Key", "X-AI-Base-URL", "X-AI-Model"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	api := router.Group("/api")
	{
		routes.SetupPracticeRoutes(api, controllers.NewPracticeController(evaluator, history, limiter))
		routes.SetupEssayRoutes(api, controllers.NewEssayController(evaluator, limiter))
		routes.SetupWebsocketRoutes(api, websocket.NewPracticeHandler(evaluator, limiter))
	}

	return router
}

// emptyHistory serves history reads when no database is configured
type emptyHistory struct{}

func (emptyHistory) ListPracticeRecords(ctx context.Context, limit int64) ([]models.PracticeRecord, error) {
	return []models.PracticeRecord{}, nil
}

func (emptyHistory) ListPracticeRecordsByText(ctx context.Context, textID string) ([]models.PracticeRecord, error) {
	return []models.PracticeRecord{}, nil
}
