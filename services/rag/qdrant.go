package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/utils"
)

// QdrantClient is a minimal Qdrant REST client: nearest-point search, point
// scroll, and upsert for the ingest worker.
type QdrantClient struct {
	baseURL    string
	collection string
	http       *http.Client
	logger     *zap.Logger
}

// QdrantPoint is one stored vector with its payload.
type QdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// NewQdrantClient builds the client from configuration.
func NewQdrantClient(cfg config.Config) *QdrantClient {
	return &QdrantClient{
		baseURL:    strings.TrimRight(cfg.QdrantURL, "/"),
		collection: cfg.QdrantCollection,
		http:       &http.Client{Timeout: 10 * time.Second},
		logger:     utils.GetLogger(),
	}
}

// Collection returns the default collection name.
func (c *QdrantClient) Collection() string { return c.collection }

// Search returns the closest points with payloads, honoring an optional
// payload filter.
func (c *QdrantClient) Search(ctx context.Context, vector []float64, limit int, filter map[string]any) ([]map[string]any, error) {
	payload := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		payload["filter"] = filter
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)

	data, err := c.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	result, _ := data["result"].([]any)
	hits := make([]map[string]any, 0, len(result))
	for _, item := range result {
		if m, ok := item.(map[string]any); ok {
			hits = append(hits, m)
		}
	}
	return hits, nil
}

// Scroll fetches points without a query vector, for health checks and admin
// inspection.
func (c *QdrantClient) Scroll(ctx context.Context, limit int) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection)
	data, err := c.post(ctx, url, map[string]any{"limit": limit, "with_payload": true})
	if err != nil {
		return nil, err
	}
	result, _ := data["result"].(map[string]any)
	points, _ := result["points"].([]any)
	hits := make([]map[string]any, 0, len(points))
	for _, item := range points {
		if m, ok := item.(map[string]any); ok {
			hits = append(hits, m)
		}
	}
	return hits, nil
}

// Upsert writes points into the collection.
func (c *QdrantClient) Upsert(ctx context.Context, points []QdrantPoint) error {
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode >= 400 {
			return fmt.Errorf("qdrant upsert returned HTTP %d", resp.StatusCode)
		}
		return nil
	}
	return backoff.Retry(operation, c.retryPolicy(ctx))
}

func (c *QdrantClient) post(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("qdrant returned HTTP %d", resp.StatusCode)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		c.logger.Error("qdrant request failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	return data, nil
}

func (c *QdrantClient) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 4 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)
}

// SourceFilter builds the payload filter for a source prefix. Exact sources
// match by value; prefixes ending in a colon match by text.
func SourceFilter(sourcePrefix string, types []string) map[string]any {
	var must []any
	if sourcePrefix != "" {
		matchKey := "value"
		if strings.HasSuffix(sourcePrefix, ":") {
			matchKey = "text"
		}
		must = append(must, map[string]any{
			"key":   "payload.source",
			"match": map[string]any{matchKey: sourcePrefix},
		})
	}
	if len(types) > 0 {
		must = append(must, map[string]any{
			"key":   "payload.type",
			"match": map[string]any{"any": types},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}
