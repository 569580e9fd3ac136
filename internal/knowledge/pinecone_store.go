// In file: internal/knowledge/pinecone_store.go
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/httpretry"
)

const (
	pineconeUpsertPath = "/vectors/upsert"
	pineconeQueryPath  = "/query"
	pineconeFetchPath  = "/vectors/fetch"
	pineconeDeletePath = "/vectors/delete"
	pineconeStatsPath  = "/describe_index_stats"
	upsertBatchSize    = 100

	// The corpus version lives in the metadata of a marker vector that
	// queries filter out.
	versionVectorID = "corpus-version"
	kindDocument    = "document"
	kindVersion     = "version"
)

// PineconeStore talks to a Pinecone index over its REST data-plane API.
type PineconeStore struct {
	host      string
	apiKey    string
	doer      *httpretry.Doer
	dimension int
}

var _ Store = (*PineconeStore)(nil)

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewPineconeStore creates a store for the index served at host. doer may be
// nil for the default retry policy.
func NewPineconeStore(host, apiKey string, doer *httpretry.Doer) (*PineconeStore, error) {
	if host == "" || apiKey == "" {
		return nil, errors.New("PINECONE_API_KEY and PINECONE_INDEX_HOST must be set for the pinecone store")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if doer == nil {
		doer = httpretry.New(&http.Client{Timeout: 30 * time.Second})
	}
	return &PineconeStore{host: strings.TrimRight(host, "/"), apiKey: apiKey, doer: doer}, nil
}

func (p *PineconeStore) Upsert(ctx context.Context, vectors []Vector) error {
	type APIRequest struct {
		Vectors []pineconeVector `json:"vectors"`
	}
	if len(vectors) > 0 {
		p.dimension = len(vectors[0].Values)
	}

	totalBatches := (len(vectors) + upsertBatchSize - 1) / upsertBatchSize
	for j := 0; j < len(vectors); j += upsertBatchSize {
		end := min(j+upsertBatchSize, len(vectors))
		batchNumber := (j / upsertBatchSize) + 1

		batch := make([]pineconeVector, 0, end-j)
		for _, v := range vectors[j:end] {
			batch = append(batch, pineconeVector{
				ID:     v.ID,
				Values: v.Values,
				Metadata: map[string]any{
					"kind":    kindDocument,
					"text":    v.Document.Content,
					"section": v.Document.Section,
				},
			})
		}
		zap.S().Infof("Upserting batch %d/%d to Pinecone (%d vectors)...", batchNumber, totalBatches, len(batch))
		if _, err := p.post(ctx, pineconeUpsertPath, APIRequest{Vectors: batch}); err != nil {
			return fmt.Errorf("pinecone upsert for batch %d failed: %w", batchNumber, err)
		}
	}
	return nil
}

func (p *PineconeStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	type APIRequest struct {
		Vector          []float32      `json:"vector"`
		TopK            int            `json:"topK"`
		IncludeMetadata bool           `json:"includeMetadata"`
		Filter          map[string]any `json:"filter"`
	}
	type APIResponse struct {
		Matches []struct {
			ID       string  `json:"id"`
			Score    float64 `json:"score"`
			Metadata struct {
				Text    string `json:"text"`
				Section string `json:"section"`
			} `json:"metadata"`
		} `json:"matches"`
	}

	body, err := p.post(ctx, pineconeQueryPath, APIRequest{
		Vector:          embedding,
		TopK:            k,
		IncludeMetadata: true,
		Filter:          map[string]any{"kind": map[string]any{"$eq": kindDocument}},
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query API request failed: %w", err)
	}
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Pinecone response: %w", err)
	}

	matches := make([]Match, 0, len(apiResp.Matches))
	for _, m := range apiResp.Matches {
		matches = append(matches, Match{
			Document: Document{ID: m.ID, Section: m.Metadata.Section, Content: m.Metadata.Text},
			Score:    m.Score,
		})
	}
	return matches, nil
}

func (p *PineconeStore) Count(ctx context.Context) (int, error) {
	var apiResp struct {
		TotalVectorCount int `json:"totalVectorCount"`
	}
	body, err := p.post(ctx, pineconeStatsPath, struct{}{})
	if err != nil {
		return 0, fmt.Errorf("pinecone stats request failed: %w", err)
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return 0, fmt.Errorf("failed to unmarshal Pinecone stats: %w", err)
	}
	return apiResp.TotalVectorCount, nil
}

func (p *PineconeStore) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.host+pineconeFetchPath+"?ids="+url.QueryEscape(versionVectorID), nil)
	if err != nil {
		return "", err
	}
	p.setHeaders(req)
	body, err := p.doer.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("pinecone fetch request failed: %w", err)
	}
	var apiResp struct {
		Vectors map[string]struct {
			Metadata map[string]any `json:"metadata"`
		} `json:"vectors"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal Pinecone fetch response: %w", err)
	}
	v, _ := apiResp.Vectors[versionVectorID].Metadata["version"].(string)
	return v, nil
}

// SetVersion stores the marker vector. It needs the index dimension, which
// is learned from the preceding Upsert.
func (p *PineconeStore) SetVersion(ctx context.Context, version string) error {
	if p.dimension == 0 {
		return errors.New("pinecone: vector dimension unknown, upsert documents before recording the version")
	}
	values := make([]float32, p.dimension)
	values[0] = 1
	payload := map[string]any{"vectors": []pineconeVector{{
		ID:       versionVectorID,
		Values:   values,
		Metadata: map[string]any{"kind": kindVersion, "version": version},
	}}}
	if _, err := p.post(ctx, pineconeUpsertPath, payload); err != nil {
		return fmt.Errorf("failed to record corpus version: %w", err)
	}
	return nil
}

func (p *PineconeStore) Reset(ctx context.Context) error {
	if _, err := p.post(ctx, pineconeDeletePath, map[string]any{"deleteAll": true}); err != nil {
		return fmt.Errorf("pinecone delete failed: %w", err)
	}
	return nil
}

func (p *PineconeStore) Close() error { return nil }

func (p *PineconeStore) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Pinecone request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setHeaders(req)
	return p.doer.Do(ctx, req)
}

func (p *PineconeStore) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")
}
