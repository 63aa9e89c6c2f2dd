package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/chat"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/history"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0}, nil
}
func (stubEmbedder) Dimensions() int { return 2 }

type stubProvider struct{ err error }

func (p *stubProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: "answer text"},
		}},
		Usage: llm.ChatUsage{TotalTokens: 42},
	}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func newTestServer(t *testing.T, provider *stubProvider) (*Server, *history.Store) {
	t.Helper()

	store := rag.NewInMemoryVectorStore(nil)
	graph := rag.NewRelationshipGraph(rag.DefaultGraphConfig(), nil)
	require.NoError(t, store.AddChunks(context.Background(), []rag.Chunk{
		{ID: "kb", Text: "known fact", Filename: "facts.txt", Topic: "Facts", Category: "General", Embedding: []float64{1, 0}},
	}))

	retriever := rag.NewHybridRetriever(stubEmbedder{}, store, graph, rag.DefaultHybridRetrieverConfig(), nil)

	hist, err := history.Open(":memory:", nil)
	require.NoError(t, err)

	orch := chat.NewOrchestrator(
		retriever,
		nil, // 网络搜索关闭
		rag.NewReranker(8, nil),
		rag.NewContextAssembler(rag.NewEstimatorTokenizer(), nil),
		provider,
		hist,
		nil,
		chat.DefaultConfig(),
		nil,
	)

	return New(orch, hist, nil), hist
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", `{"query":"tell me about facts"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Response string            `json:"response"`
		Sources  []json.RawMessage `json:"sources"`
		Model    string            `json:"model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer text", resp.Response)
	require.NotEmpty(t, resp.Sources)

	var src map[string]any
	require.NoError(t, json.Unmarshal(resp.Sources[0], &src))
	assert.Equal(t, "knowledge_base", src["type"])
}

func TestChatEndpointRejectsEmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})
	rec := doJSON(t, srv, http.MethodPost, "/api/chat", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointModelFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{err: types.NewUpstreamUnavailable(types.UpstreamModel, nil)})
	rec := doJSON(t, srv, http.MethodPost, "/api/chat", `{"query":"tell me about facts"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConversationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})

	rec := doJSON(t, srv, http.MethodPost, "/api/conversations", `{"title":"my chat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var conv history.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/conversations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), conv.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
