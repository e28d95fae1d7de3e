package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usadba/services/shelter"
	"usadba/session"
	"usadba/utils"
)

// HealthHandler reports liveness plus the latest dependency snapshot.
type HealthHandler struct {
	store   session.Store
	shelter *shelter.Client
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store session.Store, shelterClient *shelter.Client) *HealthHandler {
	return &HealthHandler{store: store, shelter: shelterClient}
}

// HealthzHandler is the liveness endpoint.
func (hh *HealthHandler) HealthzHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	sessionOK := hh.store.Ping(c.Request.Context()) == nil

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"sessionStore":       sessionOK,
		"shelterConfigured":  hh.shelter.IsConfigured(),
		"dependencySnapshot": status,
	})
}
