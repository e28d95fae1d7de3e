package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	faqRepo "usadba/database/repository/faq"
	knowledgeRepo "usadba/database/repository/knowledge"
	"usadba/models"
	"usadba/services/tasks"
	"usadba/utils"
)

// KnowledgeHandler manages the curated knowledge store and the FAQ.
type KnowledgeHandler struct {
	docs     knowledgeRepo.KnowledgeRepository
	faq      faqRepo.FAQRepository
	enqueuer *tasks.Enqueuer
	logger   *zap.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(docs knowledgeRepo.KnowledgeRepository, faq faqRepo.FAQRepository, enqueuer *tasks.Enqueuer) *KnowledgeHandler {
	return &KnowledgeHandler{docs: docs, faq: faq, enqueuer: enqueuer, logger: utils.GetLogger()}
}

// UploadDocument stores a document and queues it for vector indexing.
func (h *KnowledgeHandler) UploadDocument(c *gin.Context) {
	var req models.KnowledgeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid document payload", err.Error())
		return
	}

	docType := req.Type
	if docType == "" {
		docType = "text"
	}
	doc := models.KnowledgeDoc{
		Title:     req.Title,
		Text:      req.Text,
		Source:    req.Source,
		Type:      docType,
		CreatedAt: time.Now(),
	}
	docID, err := h.docs.Create(c.Request.Context(), doc)
	if err != nil {
		h.logger.Error("failed to store knowledge document", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to store document", err.Error())
		return
	}

	payload := models.IngestPayload{
		DocumentID: docID,
		Title:      req.Title,
		Text:       req.Text,
		Source:     req.Source,
		Type:       docType,
	}
	if err := h.enqueuer.EnqueueIngest(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed to enqueue ingest task", zap.String("documentId", docID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Document stored but indexing failed to start", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"documentId": docID, "status": "queued"})
}

// ListDocuments returns the most recent stored documents.
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), 100)
	if err != nil {
		h.logger.Error("failed to list knowledge documents", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list documents", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DeleteDocument removes a stored document. Vector points are reaped on the
// next reindex.
func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.docs.DeleteByID(c.Request.Context(), id); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to delete document", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentId": id, "status": "deleted"})
}

// CreateFAQEntry adds one question/answer pair to the FAQ store.
func (h *KnowledgeHandler) CreateFAQEntry(c *gin.Context) {
	var entry models.FAQEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid FAQ payload", err.Error())
		return
	}
	if entry.Question == "" || entry.Answer == "" {
		utils.JSONError(c, http.StatusBadRequest, "Question and answer are required", "")
		return
	}
	entry.UpdatedAt = time.Now()
	id, err := h.faq.Create(c.Request.Context(), entry)
	if err != nil {
		h.logger.Error("failed to create FAQ entry", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to create FAQ entry", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListFAQEntries returns the stored FAQ.
func (h *KnowledgeHandler) ListFAQEntries(c *gin.Context) {
	entries, err := h.faq.List(c.Request.Context(), 200)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list FAQ entries", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// DeleteFAQEntry removes one FAQ entry.
func (h *KnowledgeHandler) DeleteFAQEntry(c *gin.Context) {
	id := c.Param("id")
	if err := h.faq.DeleteByID(c.Request.Context(), id); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to delete FAQ entry", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}
