package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/partbase-backend/internal/handlers"
)

type RouterConfig struct {
	ComponentHandler   *handlers.ComponentHandler
	ReplacementHandler *handlers.ReplacementHandler
	ImportHandler      *handlers.ImportHandler
	// Comma-separated allowed origins; defaults cover local dev.
	AllowOrigins string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{"http://localhost:80", "http://localhost:3000", "http://localhost:5173"}
	if cfg.AllowOrigins != "" {
		origins = strings.Split(cfg.AllowOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Components
		api.GET("/components/:id", cfg.ComponentHandler.GetByID)
		api.GET("/components/by-mpn/:mpn", cfg.ComponentHandler.GetByMPN)
		api.POST("/components/bulk-delete", cfg.ComponentHandler.BulkDelete)

		// Replacements
		api.GET("/components/:id/replacements", cfg.ReplacementHandler.FindReplacements)

		// Imports
		api.POST("/imports/batch", cfg.ImportHandler.StartBatch)
		api.POST("/imports/family", cfg.ImportHandler.StartFamily)
		api.GET("/imports/:id", cfg.ImportHandler.GetJob)
		api.POST("/imports/:id/cancel", cfg.ImportHandler.CancelJob)
	}

	return router
}
