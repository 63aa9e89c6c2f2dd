package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(Config{BaseURL: srv.URL, Model: "m", Dimensions: 3}, nil)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, e.Dimensions())
}

func TestEmbedUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(Config{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, types.IsUpstreamUnavailable(err, types.UpstreamVector))
}

func TestEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(Config{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, types.IsUpstreamUnavailable(err, types.UpstreamVector))
}

func TestEmbedNetworkError(t *testing.T) {
	e := NewHTTPEmbedder(Config{BaseURL: "http://127.0.0.1:1", Model: "m"}, nil)
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, types.IsUpstreamUnavailable(err, types.UpstreamVector))
}
