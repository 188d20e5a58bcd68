package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/avast/retry-go/v4"
)

// Searcher issues semantic search queries against the memory service.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

type client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	maxAttempts uint
	logger      *slog.Logger
}

// NewClient creates a Searcher backed by the configured HTTP service.
// When no service is configured it returns a no-op searcher that finds
// nothing, so enrichment degrades to props-only lookups.
func NewClient(cfg *Config, logger *slog.Logger) Searcher {
	if !cfg.Enabled() {
		return noop{}
	}

	return &client{
		http:        &http.Client{Timeout: cfg.RequestTimeoutDuration()},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxAttempts: uint(cfg.MaxAttempts),
		logger:      logger.With("system", "memory"),
	}
}

func (c *client) Search(ctx context.Context, q Query) ([]Hit, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal memory query: %w", err)
	}

	hits, err := retry.DoWithData(
		func() ([]Hit, error) {
			return c.search(ctx, body)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}
	return hits, nil
}

func (c *client) search(ctx context.Context, body []byte) ([]Hit, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/search",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("memory service returned %d", resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError {
			// Client errors will not improve with retries.
			return nil, retry.Unrecoverable(err)
		}
		return nil, err
	}

	var result struct {
		Hits []Hit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode memory response: %w", err)
	}

	return result.Hits, nil
}

type noop struct{}

func (noop) Search(context.Context, Query) ([]Hit, error) {
	return nil, nil
}
