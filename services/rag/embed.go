// Package rag implements the retrieval pipeline: query embedding, vector and
// FAQ search, evidence merging, answer guard, and the shared answer cache.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"usadba/config"
	"usadba/utils"
)

const embeddingDim = 768

// EmbedClient talks to the sentence embedding sidecar.
type EmbedClient struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewEmbedClient builds the embedding client from configuration.
func NewEmbedClient(cfg config.Config) *EmbedClient {
	return &EmbedClient{
		url: cfg.EmbedURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.EmbedTimeout * float64(time.Second)),
		},
		logger: utils.GetLogger(),
	}
}

// EmbedTexts embeds a batch of texts. The latency is reported even on error
// so callers can surface it in debug payloads.
func (c *EmbedClient) EmbedTexts(ctx context.Context, texts []string) ([][]float64, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	started := time.Now()

	body, err := json.Marshal(map[string]any{"texts": texts})
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		latency := int(time.Since(started).Milliseconds())
		c.logger.Error("embedding request failed", zap.Error(err))
		return nil, latency, err
	}
	defer resp.Body.Close()
	latency := int(time.Since(started).Milliseconds())

	if resp.StatusCode >= 400 {
		return nil, latency, fmt.Errorf("embedding service returned HTTP %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, latency, err
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.Error("failed to parse embedding response", zap.Error(err))
		return nil, latency, err
	}

	embeddings, expectedDim := parseEmbedResponse(data)
	if expectedDim > 0 {
		for _, vec := range embeddings {
			if len(vec) != expectedDim {
				return nil, latency, errors.New("dim_mismatch")
			}
		}
		if expectedDim != embeddingDim {
			return nil, latency, errors.New("unexpected_dim")
		}
	}
	if len(embeddings) == 0 {
		embeddings = extractEmbeddings(data)
	}
	if len(embeddings) == 0 {
		c.logger.Warn("embedding service returned empty embeddings")
		return nil, latency, errors.New("empty_embeddings")
	}
	return embeddings, latency, nil
}

// EmbedQuery embeds a single query string.
func (c *EmbedClient) EmbedQuery(ctx context.Context, text string) ([]float64, int, error) {
	embeddings, latency, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, latency, err
	}
	if len(embeddings) == 0 {
		return nil, latency, errors.New("empty_embeddings")
	}
	return embeddings[0], latency, nil
}

// parseEmbedResponse handles the canonical {"vectors": [...], "dim": N} shape.
func parseEmbedResponse(data any) ([][]float64, int) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, 0
	}
	expectedDim := 0
	if dim, ok := obj["dim"].(float64); ok && dim > 0 {
		expectedDim = int(dim)
	}
	var embeddings [][]float64
	if vectors, ok := obj["vectors"].([]any); ok {
		for _, item := range vectors {
			if vec := normalizeVector(item); len(vec) > 0 {
				embeddings = append(embeddings, vec)
			}
		}
	}
	return embeddings, expectedDim
}

// extractEmbeddings digs vectors out of the looser shapes embedding services
// produce: nested "embeddings"/"data" arrays, per-item "embedding" keys, or a
// bare vector.
func extractEmbeddings(data any) [][]float64 {
	var embeddings [][]float64

	switch v := data.(type) {
	case map[string]any:
		for _, key := range []string{"embeddings", "vectors", "data", "result"} {
			if nested, ok := v[key].([]any); ok {
				embeddings = append(embeddings, extractEmbeddings(nested)...)
			}
		}
		for _, key := range []string{"embedding", "vector"} {
			if vec := normalizeVector(v[key]); len(vec) > 0 {
				embeddings = append(embeddings, vec)
			}
		}
	case []any:
		if vec := normalizeVector(v); len(vec) > 0 {
			return [][]float64{vec}
		}
		for _, item := range v {
			switch inner := item.(type) {
			case map[string]any:
				for _, key := range []string{"embedding", "vector"} {
					if vec := normalizeVector(inner[key]); len(vec) > 0 {
						embeddings = append(embeddings, vec)
					}
				}
			default:
				if vec := normalizeVector(inner); len(vec) > 0 {
					embeddings = append(embeddings, vec)
				}
			}
		}
	}
	return embeddings
}

func normalizeVector(value any) []float64 {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	floats := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok {
			floats = append(floats, f)
		}
	}
	if len(floats) == 0 {
		return nil
	}
	return floats
}
