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

	"github.com/Yates-Labs/scribe/internal/httpretry"
)

// CohereConfig configures the Cohere rerank client.
type CohereConfig struct {
	APIKey  string
	BaseURL string // default https://api.cohere.com
	Model   string // default rerank-v3.5
}

// CohereReranker implements RerankModel against Cohere's /v2/rerank endpoint.
type CohereReranker struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	retry      httpretry.Config
}

// NewCohereReranker creates a Cohere client. A missing API key is not an error here;
// every Rerank call then fails and the Reranker falls back to retrieval order.
func NewCohereReranker(cfg CohereConfig) *CohereReranker {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}
	model := cfg.Model
	if model == "" {
		model = "rerank-v3.5"
	}
	return &CohereReranker{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      httpretry.DefaultConfig,
	}
}

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank asks Cohere for the topN most relevant documents.
func (c *CohereReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]int, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: Cohere API key not found, skipping reranking", ErrRerankFailed)
	}
	if len(documents) == 0 {
		return []int{}, nil
	}

	body, err := json.Marshal(cohereRerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}

	resp, err := httpretry.HTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRerankFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrRerankFailed, err)
	}

	indices := make([]int, len(parsed.Results))
	for i, r := range parsed.Results {
		indices[i] = r.Index
	}
	return indices, nil
}
