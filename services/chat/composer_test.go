package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/config"
	"usadba/models"
	"usadba/services/booking"
	"usadba/services/rag"
	"usadba/session"
)

type fakeQuotes struct{}

func (f *fakeQuotes) GetQuotes(ctx context.Context, checkIn, checkOut string, guests models.Guests) ([]models.Quote, error) {
	return nil, nil
}

type fakeFAQ struct {
	hits []models.FAQHit
}

func (f *fakeFAQ) Search(ctx context.Context, query string, limit int) ([]models.FAQHit, error) {
	return f.hits, nil
}

type fakeCompleter struct {
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	f.calls++
	return "", nil
}

func TestDelegatedQuestionKeepsBookingDraft(t *testing.T) {
	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vec := make([]float64, 768)
		vec[0] = 0.1
		_ = json.NewEncoder(w).Encode(map[string]any{"vectors": [][]float64{vec}, "dim": 768})
	}))
	defer embedSrv.Close()
	qdrantSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer qdrantSrv.Close()

	cfg := config.Config{
		EmbedURL:          embedSrv.URL,
		EmbedTimeout:      2,
		QdrantURL:         qdrantSrv.URL,
		QdrantCollection:  "kb",
		RagScoreThreshold: 0.2,
		RagFactsLimit:     5,
		RagFilesLimit:     5,
		RagMinFacts:       2,
		RagMaxSnippets:    8,
		RagContextChars:   4000,
		FAQLimit:          3,
		FAQMinSimilarity:  0.35,
		BookingURL:        "https://example.test/booking",
		ShownOffers:       3,
	}

	faq := &fakeFAQ{hits: []models.FAQHit{
		{Question: "Есть ли баня?", Answer: "Да, баня на дровах, запись у администратора.", Similarity: 0.9},
	}}
	llm := &fakeCompleter{}
	retriever := rag.NewRetriever(rag.NewEmbedClient(cfg), rag.NewQdrantClient(cfg), faq, cfg)
	ragSvc := rag.NewService(retriever, llm, rag.NewMemoryAnswerCache(16, time.Minute, 500), cfg)

	engine := booking.NewEngine(&fakeQuotes{}, cfg)
	store := session.NewMemoryStore(time.Minute, 10)
	composer := NewComposer(engine, ragSvc, store, cfg)

	// A quote was already shown; the guest asks a service question mid-flow.
	ctx := context.Background()
	two := 2
	zero := 0
	seeded := models.NewBookingContext()
	seeded.State = models.StateAwaitingDecision
	seeded.CheckIn = "2025-02-10"
	seeded.CheckOut = "2025-02-13"
	seeded.Adults = &two
	seeded.Children = &zero
	require.NoError(t, store.SetContext(ctx, "sess-1", seeded))

	answer, sessionID, debug := composer.HandleMessage(ctx, "sess-1", "а есть ли баня?")

	assert.Equal(t, "sess-1", sessionID)
	assert.Equal(t, true, debug["delegated"])
	assert.Contains(t, answer, "баня на дровах")
	assert.Contains(t, answer, "Черновик бронирования сохранён")
	assert.Zero(t, llm.calls)

	// The collected slots survive the detour.
	stored, err := store.GetContext(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StateAwaitingDecision, stored.State)
	assert.Equal(t, "2025-02-10", stored.CheckIn)
	assert.Equal(t, "2025-02-13", stored.CheckOut)
}
