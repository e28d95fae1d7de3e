package rag

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

// FAQSearcher ranks curated question/answer entries against a query.
type FAQSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.FAQHit, error)
}

// Retriever gathers evidence for a query from the vector index and the FAQ
// corpus. The two searches run concurrently; either failing leaves its error
// in the aggregate instead of failing the whole gather.
type Retriever struct {
	embed  *EmbedClient
	qdrant *QdrantClient
	faq    FAQSearcher
	cfg    config.Config
	logger *zap.Logger
}

// NewRetriever wires the retrieval collaborators together.
func NewRetriever(embed *EmbedClient, qdrant *QdrantClient, faq FAQSearcher, cfg config.Config) *Retriever {
	return &Retriever{
		embed:  embed,
		qdrant: qdrant,
		faq:    faq,
		cfg:    cfg,
		logger: utils.GetLogger(),
	}
}

// Gather runs the full retrieval pass for one query.
func (r *Retriever) Gather(ctx context.Context, query string) models.Aggregated {
	started := time.Now()
	aggregated := models.Aggregated{ScoreThreshold: r.cfg.RagScoreThreshold}

	var wg sync.WaitGroup

	var faqHits []models.FAQHit
	var faqErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		limit := r.cfg.FAQLimit
		if limit <= 0 {
			limit = 3
		}
		hits, err := r.faq.Search(ctx, query, limit)
		if err != nil {
			faqErr = err
			return
		}
		for _, hit := range hits {
			if hit.Similarity >= r.cfg.FAQMinSimilarity {
				faqHits = append(faqHits, hit)
			}
		}
	}()

	var vectorHits []models.EvidenceHit
	var filteredOut int
	var minScore, maxScore *float64
	var embedLatency int
	var embedErr, vectorErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		vector, latency, err := r.embed.EmbedQuery(ctx, query)
		embedLatency = latency
		if err != nil {
			embedErr = err
			return
		}

		limit := r.cfg.RagFactsLimit
		if r.cfg.RagFilesLimit > limit {
			limit = r.cfg.RagFilesLimit
		}
		raw, err := r.qdrant.Search(ctx, vector, limit, nil)
		if err != nil {
			vectorErr = err
			return
		}

		normalized := dedupeHits(normalizeHits(raw), map[string]bool{})
		for _, hit := range normalized {
			score := hit.Score
			if minScore == nil || score < *minScore {
				minScore = &score
			}
			if maxScore == nil || score > *maxScore {
				maxScore = &score
			}
		}
		for _, hit := range normalized {
			if hit.Score >= r.cfg.RagScoreThreshold {
				vectorHits = append(vectorHits, hit)
			}
		}
		filteredOut = len(normalized) - len(vectorHits)
		sort.SliceStable(vectorHits, func(i, j int) bool {
			return vectorHits[i].Score > vectorHits[j].Score
		})
	}()

	wg.Wait()

	aggregated.FactsHits = vectorHits
	aggregated.FAQHits = faqHits
	aggregated.MergedCount = len(vectorHits)
	aggregated.HitsTotal = len(vectorHits) + len(faqHits)
	aggregated.FilteredOutCount = filteredOut
	aggregated.MinScore = minScore
	aggregated.MaxScore = maxScore
	aggregated.EmbedLatencyMS = embedLatency
	aggregated.RagLatencyMS = int(time.Since(started).Milliseconds())
	if embedErr != nil {
		aggregated.EmbedError = embedErr.Error()
	}
	if vectorErr != nil {
		aggregated.VectorError = vectorErr.Error()
		r.logger.Error("qdrant search failed", zap.Error(vectorErr))
	}
	if faqErr != nil {
		aggregated.FAQError = faqErr.Error()
		r.logger.Error("faq search failed", zap.Error(faqErr))
	}
	return aggregated
}

// RetrieveSplit is the two-phase variant: curated facts first, file chunks
// only when facts fall short of the minimum.
func (r *Retriever) RetrieveSplit(ctx context.Context, query string) (facts, files []models.EvidenceHit) {
	vector, _, err := r.embed.EmbedQuery(ctx, query)
	if err != nil || len(vector) == 0 {
		return nil, nil
	}

	seen := map[string]bool{}
	factsRaw, err := r.qdrant.Search(ctx, vector, r.cfg.RagFactsLimit,
		SourceFilter("postgres:u4s_chatbot", nil))
	if err == nil {
		facts = dedupeHits(normalizeHits(factsRaw), seen)
	}
	if len(facts) < r.cfg.RagMinFacts {
		filesRaw, err := r.qdrant.Search(ctx, vector, r.cfg.RagFilesLimit,
			SourceFilter("file:", nil))
		if err == nil {
			files = dedupeHits(normalizeHits(filesRaw), seen)
		}
	}
	return facts, files
}

func normalizeHits(raw []map[string]any) []models.EvidenceHit {
	hits := make([]models.EvidenceHit, 0, len(raw))
	for _, item := range raw {
		payload, _ := item["payload"].(map[string]any)
		if payload == nil {
			payload = map[string]any{}
		}
		hit := models.EvidenceHit{
			Score:    floatValue(item["score"]),
			Type:     stringValue(payload["type"]),
			Title:    stringValue(payload["title"]),
			EntityID: stringValue(payload["entity_id"]),
			Text:     extractText(payload),
			Source:   stringValue(payload["source"]),
			Payload:  payload,
		}
		hit.Origin = classifyOrigin(hit)
		hits = append(hits, hit)
	}
	return hits
}

// dedupeHits drops hits whose title plus leading text was already seen. The
// seen set is shared across phases so file chunks never repeat facts.
func dedupeHits(hits []models.EvidenceHit, seen map[string]bool) []models.EvidenceHit {
	unique := make([]models.EvidenceHit, 0, len(hits))
	for _, hit := range hits {
		text := hit.Text
		if runes := []rune(text); len(runes) > 80 {
			text = string(runes[:80])
		}
		key := hit.Title + "::" + text
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, hit)
	}
	return unique
}

func classifyOrigin(hit models.EvidenceHit) string {
	if hit.Type == "faq" || hit.Type == "faq_ext" {
		return models.OriginFAQ
	}
	if strings.HasPrefix(hit.Source, "knowledge") || strings.Contains(hit.Source, ".md") {
		return models.OriginCurated
	}
	return models.OriginVector
}

func extractText(payload map[string]any) string {
	for _, key := range []string{"text", "content", "chunk", "body"} {
		if value := strings.TrimSpace(stringValue(payload[key])); value != "" {
			return value
		}
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func floatValue(v any) float64 {
	f, _ := v.(float64)
	return f
}
