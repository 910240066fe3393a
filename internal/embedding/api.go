package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cortexdb/cortex/internal/cortexerr"
)

// APIEmbedder calls a networked embedding provider over HTTP, the
// OpenAI-compatible request/response shape grounded on
// other_examples/a8bbf20e_ehrlich-b-wingthing__experiments-embedding-
// main.go.go's embed() function: POST {model, input, dimensions} to the
// endpoint, read back a data[].embedding array. Transient failures are
// retried with cenkalti/backoff/v4; after the retry budget is exhausted
// the failure is reported as cortexerr.ErrEmbedderUnavailable so the
// engine can degrade per spec §4.5 instead of failing the write.
type APIEmbedder struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

// NewAPI returns an APIEmbedder with a bounded-timeout default client.
func NewAPI(endpoint, apiKey, model string) *APIEmbedder {
	return &APIEmbedder{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *APIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	op := func() error {
		body, err := json.Marshal(embeddingRequest{Model: e.Model, Input: []string{text}, Dimensions: Dims})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("embedding: marshal request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("embedding: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.APIKey)

		resp, err := e.Client.Do(req)
		if err != nil {
			return fmt.Errorf("embedding: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("embedding: provider status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("embedding: provider status %d: %s", resp.StatusCode, string(b)))
		}

		var parsed embeddingResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("embedding: decode response: %w", err))
		}
		if len(parsed.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("embedding: empty response"))
		}
		vec = parsed.Data[0].Embedding
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", cortexerr.ErrEmbedderUnavailable, err)
	}
	if len(vec) != Dims {
		return nil, fmt.Errorf("%w: provider returned %d dims, want %d", cortexerr.ErrEmbedderUnavailable, len(vec), Dims)
	}
	normalize(vec)
	return vec, nil
}
