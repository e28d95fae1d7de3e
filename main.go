// File: usadba/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usadba/config"
	"usadba/cron"
	"usadba/database"
	faqRepo "usadba/database/repository/faq"
	knowledgeRepo "usadba/database/repository/knowledge"
	"usadba/handlers"
	"usadba/middleware"
	"usadba/routes"
	"usadba/services/booking"
	"usadba/services/chat"
	ai "usadba/services/intelligence"
	"usadba/services/rag"
	"usadba/services/shelter"
	"usadba/services/tasks"
	"usadba/session"
	"usadba/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg := config.LoadConfig()
	utils.InitializeLogger(cfg.IsProduction())
	logger := utils.GetLogger()

	database.InitDB(cfg)

	stateClient := utils.NewStateClient(cfg)
	redisClients := map[string]*redis.Client{"state": stateClient}

	var cacheClient *redis.Client
	if cfg.UseRedisCache {
		cacheClient = utils.NewCacheClient(cfg)
		redisClients["cache"] = cacheClient
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	// repositories.
	faqRepository := faqRepo.NewMongoFAQRepo()
	knowledgeRepository := knowledgeRepo.NewMongoKnowledgeRepo()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := faqRepo.EnsureIndexes(indexCtx, faqRepository); err != nil {
		logger.Sugar().Warnf("main: failed to ensure FAQ indexes: %v", err)
	}
	cancelIndex()

	// external collaborators.
	shelterClient := shelter.NewClient(cfg)
	embedClient := rag.NewEmbedClient(cfg)
	qdrantClient := rag.NewQdrantClient(cfg)
	geminiClient := ai.NewGeminiClient(cfg)

	// retrieval and answering pipeline.
	retriever := rag.NewRetriever(embedClient, qdrantClient, faqRepository, cfg)
	answerCache := rag.NewAnswerCache(cfg, cacheClient)
	ragService := rag.NewService(retriever, geminiClient, answerCache, cfg)

	// dialogue engine and session state.
	engine := booking.NewEngine(shelterClient, cfg)
	sessionStore := session.NewRedisStore(stateClient, cfg)
	composer := chat.NewComposer(engine, ragService, sessionStore, cfg)

	// background ingestion.
	enqueuer := tasks.NewEnqueuer(cfg)
	defer enqueuer.Close()
	ingester := tasks.NewIngester(knowledgeRepository, embedClient, qdrantClient)
	cron.InitIngestWorker(cfg, ingester)

	utils.StartHealthMonitor(redisClients, database.MongoClient)

	// handlers.
	chatHandler := handlers.NewChatHandler(composer, cfg)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeRepository, faqRepository, enqueuer)
	adminHandler := handlers.NewAdminHandler(ragService.Cache(), shelterClient)
	healthHandler := handlers.NewHealthHandler(sessionStore, shelterClient)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Chat endpoints.
		HandleChat:    chatHandler.HandleChat,
		HandleHistory: chatHandler.HandleHistory,
		HandleReset:   chatHandler.HandleReset,

		// Knowledge endpoints.
		UploadDocument: knowledgeHandler.UploadDocument,
		ListDocuments:  knowledgeHandler.ListDocuments,
		DeleteDocument: knowledgeHandler.DeleteDocument,
		CreateFAQEntry: knowledgeHandler.CreateFAQEntry,
		ListFAQEntries: knowledgeHandler.ListFAQEntries,
		DeleteFAQEntry: knowledgeHandler.DeleteFAQEntry,

		// Admin endpoints.
		AdminHandler: adminHandler,

		// Health endpoint.
		HealthHandler: healthHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle, cfg)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
