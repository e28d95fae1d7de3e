package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"usadba/config"
	"usadba/handlers"
	"usadba/middleware"
)

// RegisterChatRoutes registers the conversational endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/v1")
	{
		api.POST("/chat", hb.HandleChat)
		api.GET("/chat/:sessionId/history", hb.HandleHistory)
		api.DELETE("/chat/:sessionId", hb.HandleReset)
	}
}

// RegisterKnowledgeRoutes registers the knowledge base management endpoints.
// Mutations require the API key.
func RegisterKnowledgeRoutes(r *gin.Engine, hb *handlers.HandlerBundle, cfg config.Config) {
	api := r.Group("/v1/knowledge")
	{
		api.GET("/documents", hb.ListDocuments)
		api.GET("/faq", hb.ListFAQEntries)

		protected := api.Group("")
		protected.Use(middleware.APIKeyMiddleware(cfg.APIKey))
		protected.POST("/documents", hb.UploadDocument)
		protected.DELETE("/documents/:id", hb.DeleteDocument)
		protected.POST("/faq", hb.CreateFAQEntry)
		protected.DELETE("/faq/:id", hb.DeleteFAQEntry)
	}
}

// RegisterAdminRoutes sets up endpoints for operational tasks.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle, cfg config.Config) {
	adminGroup := r.Group("/v1/admin")
	{
		adminGroup.Use(middleware.APIKeyMiddleware(cfg.APIKey))
		adminGroup.GET("/cache/stats", hb.AdminHandler.CacheStatsHandler)
		adminGroup.POST("/cache/clear", hb.AdminHandler.CacheClearHandler)
		adminGroup.GET("/hotel-params", hb.AdminHandler.HotelParamsHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/healthz", hb.HealthHandler.HealthzHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, cfg config.Config) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterKnowledgeRoutes(r, hb, cfg)
	RegisterAdminRoutes(r, hb, cfg)
	RegisterHealthRoute(r, hb)
}
