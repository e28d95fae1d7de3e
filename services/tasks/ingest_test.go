package tasks

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/config"
	"usadba/models"
	"usadba/services/rag"
)

func TestChunkTextShortDocument(t *testing.T) {
	assert.Empty(t, ChunkText("   \n\n  ", 800, 120))

	chunks := ChunkText("Баня на дровах работает ежедневно.", 800, 120)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Баня на дровах работает ежедневно.", chunks[0])
}

func TestChunkTextJoinsSmallParagraphs(t *testing.T) {
	text := "Первый абзац про баню.\n\nВторой абзац про коттеджи."
	chunks := ChunkText(text, 800, 120)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkTextSplitsAtParagraphBoundary(t *testing.T) {
	text := "ааааа\n\nбббббб"
	chunks := ChunkText(text, 10, 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ааааа", chunks[0])
	// The next window carries a trailing overlap from the previous one.
	assert.True(t, strings.HasPrefix(chunks[1], "ааа"), "got %q", chunks[1])
	assert.Contains(t, chunks[1], "бббббб")
}

func TestChunkTextHardSplitsOversizedParagraph(t *testing.T) {
	text := strings.Repeat("я", 25)
	chunks := ChunkText(text, 10, 0)
	require.Len(t, chunks, 3)
	// Windows are counted in runes, not bytes.
	assert.Len(t, []rune(chunks[0]), 10)
	assert.Len(t, []rune(chunks[1]), 10)
	assert.Len(t, []rune(chunks[2]), 5)
}

func TestChunkTextDefaultsApply(t *testing.T) {
	chunks := ChunkText("короткий текст", 0, -5)
	require.Len(t, chunks, 1)
	assert.Equal(t, "короткий текст", chunks[0])
}

func TestNewIngestTaskPayloadRoundTrip(t *testing.T) {
	payload := models.IngestPayload{
		DocumentID: "doc-1",
		Title:      "Баня",
		Source:     "knowledge:doc-1",
		Type:       "text",
	}
	task, err := NewIngestTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeIngestDocument, task.Type())
	assert.Contains(t, string(task.Payload()), `"doc-1"`)
}

type stubKnowledgeRepo struct {
	doc *models.KnowledgeDoc
	err error
}

func (s *stubKnowledgeRepo) Create(ctx context.Context, doc models.KnowledgeDoc) (string, error) {
	return "", nil
}

func (s *stubKnowledgeRepo) GetByID(ctx context.Context, id string) (*models.KnowledgeDoc, error) {
	return s.doc, s.err
}

func (s *stubKnowledgeRepo) List(ctx context.Context, limit int) ([]models.KnowledgeDoc, error) {
	return nil, nil
}

func (s *stubKnowledgeRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func TestHandleIngestTaskVanishedDocument(t *testing.T) {
	cfg := config.Config{EmbedURL: "http://127.0.0.1:1", EmbedTimeout: 1, QdrantURL: "http://127.0.0.1:1"}
	ingester := NewIngester(&stubKnowledgeRepo{}, rag.NewEmbedClient(cfg), rag.NewQdrantClient(cfg))

	task, err := NewIngestTask(models.IngestPayload{DocumentID: "gone"})
	require.NoError(t, err)

	// A document deleted between enqueue and processing is not an error.
	assert.NoError(t, ingester.HandleIngestTask(context.Background(), task))
}

func TestHandleIngestTaskEmptyTextSkipped(t *testing.T) {
	cfg := config.Config{EmbedURL: "http://127.0.0.1:1", EmbedTimeout: 1, QdrantURL: "http://127.0.0.1:1"}
	repo := &stubKnowledgeRepo{doc: &models.KnowledgeDoc{ID: "doc-1", Text: "   "}}
	ingester := NewIngester(repo, rag.NewEmbedClient(cfg), rag.NewQdrantClient(cfg))

	task, err := NewIngestTask(models.IngestPayload{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.NoError(t, ingester.HandleIngestTask(context.Background(), task))
}
