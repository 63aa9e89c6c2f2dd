package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantPointIDStable(t *testing.T) {
	assert.Equal(t, qdrantPointID("chunk-1"), qdrantPointID("chunk-1"))
	assert.NotEqual(t, qdrantPointID("chunk-1"), qdrantPointID("chunk-2"))
}

func TestQdrantAddChunksAndSearch(t *testing.T) {
	var upserted struct {
		Points []qdrantPoint `json:"points"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})

		case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{{
					"score": 0.92,
					"payload": map[string]any{
						"chunk_id": "c1",
						"text":     "hello",
						"topic":    "Greetings",
						"category": "General",
						"filename": "greetings.txt",
					},
				}},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL, APIKey: "secret", Collection: "docs"}, nil)
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []Chunk{
		{ID: "c1", Text: "hello", Embedding: []float64{0.1, 0.2}, Topic: "Greetings", Category: "General", Filename: "greetings.txt"},
	}))
	require.Len(t, upserted.Points, 1)
	assert.Equal(t, qdrantPointID("c1"), upserted.Points[0].ID)
	assert.Equal(t, "c1", upserted.Points[0].Payload["chunk_id"])

	got, err := s.Search(ctx, []float64{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].Chunk.ID)
	assert.Equal(t, "Greetings", got[0].Chunk.Topic)
	assert.InDelta(t, 0.92, got[0].Score, 1e-9)
}

func TestQdrantAddChunksValidation(t *testing.T) {
	s := NewQdrantStore(QdrantConfig{URL: "http://localhost:6333", Collection: "docs"}, nil)
	ctx := context.Background()

	assert.Error(t, s.AddChunks(ctx, []Chunk{{ID: "", Embedding: []float64{1}}}))
	assert.Error(t, s.AddChunks(ctx, []Chunk{{ID: "a"}}))
	assert.Error(t, s.AddChunks(ctx, []Chunk{
		{ID: "a", Embedding: []float64{1, 2}},
		{ID: "b", Embedding: []float64{1}},
	}))
	assert.NoError(t, s.AddChunks(ctx, nil))
}

func TestQdrantSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL, Collection: "docs"}, nil)
	_, err := s.Search(context.Background(), []float64{1}, 3)
	assert.Error(t, err)
}

func TestQdrantCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/count", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]int{"count": 42},
		})
	}))
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL, Collection: "docs"}, nil)
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}
