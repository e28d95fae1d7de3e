package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usadba/services/rag"
	"usadba/services/shelter"
	"usadba/utils"
)

// AdminHandler encapsulates operational endpoints.
type AdminHandler struct {
	cache   rag.AnswerCache
	shelter *shelter.Client
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cache rag.AnswerCache, shelterClient *shelter.Client) *AdminHandler {
	return &AdminHandler{cache: cache, shelter: shelterClient, logger: utils.GetLogger()}
}

// CacheStatsHandler reports answer cache counters.
func (ah *AdminHandler) CacheStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ah.cache.Stats())
}

// CacheClearHandler drops every cached answer.
func (ah *AdminHandler) CacheClearHandler(c *gin.Context) {
	removed := ah.cache.Clear(c.Request.Context())
	ah.logger.Info("answer cache cleared", zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// HotelParamsHandler proxies the PMS hotel metadata, mostly for diagnostics.
func (ah *AdminHandler) HotelParamsHandler(c *gin.Context) {
	if !ah.shelter.IsConfigured() {
		utils.JSONError(c, http.StatusServiceUnavailable, "PMS is not configured", "")
		return
	}
	params, err := ah.shelter.FetchHotelParams(c.Request.Context())
	if err != nil {
		ah.logger.Error("failed to fetch hotel params", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to fetch hotel params", err.Error())
		return
	}
	c.JSON(http.StatusOK, params)
}
