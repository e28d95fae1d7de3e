// Package handlers exposes the HTTP surface of the assistant.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/services/chat"
	"usadba/utils"
)

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	composer *chat.Composer
	cfg      config.Config
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(composer *chat.Composer, cfg config.Config) *ChatHandler {
	return &ChatHandler{composer: composer, cfg: cfg, logger: utils.GetLogger()}
}

// HandleChat processes one user turn. The debug payload is returned only when
// enabled in configuration.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	answer, sessionID, debug := h.composer.HandleMessage(c.Request.Context(), req.SessionID, req.Message)

	resp := models.ChatResponse{Answer: answer}
	if h.cfg.IncludeDebug {
		resp.Debug = debug
	}
	c.Header("X-Session-Id", sessionID)
	c.JSON(http.StatusOK, resp)
}

// HandleHistory returns the stored transcript for a session, oldest first.
func (h *ChatHandler) HandleHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing session id", "")
		return
	}
	history, err := h.composer.History(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load history", zap.String("sessionId", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "messages": history})
}

// HandleReset drops the dialogue state and history for a session.
func (h *ChatHandler) HandleReset(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing session id", "")
		return
	}
	if err := h.composer.ResetSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("failed to reset session", zap.String("sessionId", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to reset session", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "status": "reset"})
}
