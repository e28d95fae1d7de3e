package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints.
	HandleChat    gin.HandlerFunc
	HandleHistory gin.HandlerFunc
	HandleReset   gin.HandlerFunc

	// Knowledge endpoints.
	UploadDocument gin.HandlerFunc
	ListDocuments  gin.HandlerFunc
	DeleteDocument gin.HandlerFunc
	CreateFAQEntry gin.HandlerFunc
	ListFAQEntries gin.HandlerFunc
	DeleteFAQEntry gin.HandlerFunc

	// Admin endpoints.
	AdminHandler *AdminHandler

	// Health endpoint.
	HealthHandler *HealthHandler
}
