package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cortexdb/cortex/internal/cortexerr"
)

func TestAPIEmbedder_ParsesResponse(t *testing.T) {
	want := make([]float32, Dims)
	want[0] = 3
	want[1] = 4

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{{Index: 0, Embedding: want}},
		})
	}))
	defer srv.Close()

	e := NewAPI(srv.URL, "secret", "test-model")
	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, vec, Dims)
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestAPIEmbedder_PermanentFailureReturnsEmbedderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	e := NewAPI(srv.URL, "bad", "test-model")
	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, cortexerr.ErrEmbedderUnavailable)
}
