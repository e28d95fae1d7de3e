// Package tasks defines the background jobs that keep the vector index in
// sync with the curated knowledge store.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"usadba/config"
	knowledgeRepo "usadba/database/repository/knowledge"
	"usadba/models"
	"usadba/services/rag"
	"usadba/utils"
)

const TypeIngestDocument = "knowledge:ingest"

// Chunking keeps embedding inputs well under the model window while leaving
// enough overlap that facts split across a boundary stay retrievable.
const (
	chunkSizeRunes    = 800
	chunkOverlapRunes = 120
)

// NewIngestTask builds the asynq task for one document.
func NewIngestTask(payload models.IngestPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIngestDocument, b, asynq.MaxRetry(3)), nil
}

// Enqueuer submits ingestion jobs to the queue.
type Enqueuer struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewEnqueuer connects a task client to the queue Redis database.
func NewEnqueuer(cfg config.Config) *Enqueuer {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	})
	return &Enqueuer{client: client, logger: utils.GetLogger()}
}

// EnqueueIngest schedules a document for chunking and indexing.
func (e *Enqueuer) EnqueueIngest(ctx context.Context, payload models.IngestPayload) error {
	task, err := NewIngestTask(payload)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}
	e.logger.Info("ingest task enqueued",
		zap.String("taskId", info.ID), zap.String("documentId", payload.DocumentID))
	return nil
}

// Close releases the underlying queue connection.
func (e *Enqueuer) Close() error { return e.client.Close() }

// Ingester turns one knowledge document into embedded vector points.
type Ingester struct {
	repo   knowledgeRepo.KnowledgeRepository
	embed  *rag.EmbedClient
	qdrant *rag.QdrantClient
	logger *zap.Logger
}

// NewIngester wires the ingest dependencies.
func NewIngester(repo knowledgeRepo.KnowledgeRepository, embed *rag.EmbedClient, qdrant *rag.QdrantClient) *Ingester {
	return &Ingester{repo: repo, embed: embed, qdrant: qdrant, logger: utils.GetLogger()}
}

// HandleIngestTask is the asynq handler for TypeIngestDocument.
func (i *Ingester) HandleIngestTask(ctx context.Context, task *asynq.Task) error {
	var payload models.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		i.logger.Error("invalid ingest payload", zap.Error(err))
		return fmt.Errorf("invalid ingest payload: %w", err)
	}

	text := payload.Text
	title := payload.Title
	if text == "" && payload.DocumentID != "" {
		doc, err := i.repo.GetByID(ctx, payload.DocumentID)
		if err != nil {
			return fmt.Errorf("load document %s: %w", payload.DocumentID, err)
		}
		if doc == nil {
			i.logger.Warn("document vanished before ingestion", zap.String("documentId", payload.DocumentID))
			return nil
		}
		text = doc.Text
		title = doc.Title
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunks := ChunkText(text, chunkSizeRunes, chunkOverlapRunes)
	vectors, latency, err := i.embed.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]rag.QdrantPoint, 0, len(chunks))
	for idx, chunk := range chunks {
		points = append(points, rag.QdrantPoint{
			ID:     uuid.NewString(),
			Vector: vectors[idx],
			Payload: map[string]any{
				"title":  title,
				"text":   chunk,
				"source": payload.Source,
				"type":   payload.Type,
				"doc_id": payload.DocumentID,
				"chunk":  idx,
			},
		})
	}
	if err := i.qdrant.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}

	i.logger.Info("document ingested",
		zap.String("documentId", payload.DocumentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("embedLatencyMs", latency))
	return nil
}

// ChunkText splits text into rune-bounded windows, preferring paragraph
// boundaries and carrying a trailing overlap between adjacent windows.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = chunkSizeRunes
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current []rune

	flush := func() {
		trimmed := strings.TrimSpace(string(current))
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		if overlap > 0 && len(current) > overlap {
			current = append([]rune(nil), current[len(current)-overlap:]...)
		} else {
			current = nil
		}
	}

	for _, para := range paragraphs {
		runes := []rune(strings.TrimSpace(para))
		if len(runes) == 0 {
			continue
		}
		// A single oversized paragraph is hard-split.
		for len(runes) > size {
			current = append(current, runes[:size]...)
			runes = runes[size:]
			flush()
		}
		if len(current)+len(runes)+2 > size && len(current) > 0 {
			flush()
		}
		if len(current) > 0 {
			current = append(current, '\n', '\n')
		}
		current = append(current, runes...)
	}
	if trimmed := strings.TrimSpace(string(current)); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
