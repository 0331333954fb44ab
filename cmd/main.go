package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/partbase-backend/internal/clients/openai"
	"github.com/yungbote/partbase-backend/internal/clients/pdftext"
	redisbus "github.com/yungbote/partbase-backend/internal/clients/redis"
	"github.com/yungbote/partbase-backend/internal/clients/vendors"
	"github.com/yungbote/partbase-backend/internal/db"
	"github.com/yungbote/partbase-backend/internal/handlers"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/server"
	"github.com/yungbote/partbase-backend/internal/services"
	"github.com/yungbote/partbase-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	componentRepo := repos.NewComponentRepo(thePG, log)
	pinoutRepo := repos.NewPinoutRepo(thePG, log)
	cacheRepo := repos.NewDatasheetCacheRepo(thePG, log)
	importJobRepo := repos.NewImportJobRepo(thePG, log)
	llmCallLogRepo := repos.NewLLMCallLogRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pdfClient := pdftext.NewClient(log)
	partSources := vendors.BuildSources(log)
	if len(partSources) == 0 {
		log.Warn("No part sources configured, imports will fail until one is")
	}
	progressBus, err := redisbus.NewProgressBus(log)
	if err != nil {
		log.Warn("Progress bus disabled", "error", err)
		progressBus = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	promptTTL := utils.GetEnvAsDuration("PROMPT_CACHE_TTL", 10*time.Minute, log)
	prompts := services.NewPromptCache(promptTTL, nil)
	extractor := services.NewPinoutExtractionService(thePG, log, openaiClient, llmCallLogRepo, prompts)
	cacheService := services.NewDatasheetCacheService(thePG, log, cacheRepo, pdfClient, extractor)
	componentService := services.NewComponentService(thePG, log, componentRepo, pinoutRepo)
	replacementService := services.NewReplacementService(thePG, log, componentRepo, pinoutRepo)
	ingestionService := services.NewIngestionService(
		thePG,
		log,
		componentRepo,
		pinoutRepo,
		importJobRepo,
		cacheService,
		pdfClient,
		extractor,
		partSources,
		progressBus,
	)
	cacheService.StartSweeper(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	componentHandler := handlers.NewComponentHandler(componentService)
	replacementHandler := handlers.NewReplacementHandler(replacementService)
	importHandler := handlers.NewImportHandler(log, ingestionService, importJobRepo)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ComponentHandler:   componentHandler,
		ReplacementHandler: replacementHandler,
		ImportHandler:      importHandler,
		AllowOrigins:       utils.GetEnv("CORS_ALLOW_ORIGINS", "", log),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
