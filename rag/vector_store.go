package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// VectorStore 向量索引客户端接口。
type VectorStore interface {
	// 添加 chunk
	AddChunks(ctx context.Context, chunks []Chunk) error

	// 按余弦相似度搜索最近的 topK 个 chunk
	Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error)

	// 获取 chunk 数量
	Count(ctx context.Context) (int, error)
}

// VectorSearchResult 向量搜索结果。
type VectorSearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ====== 内存向量存储（用于测试和小规模语料）======

// InMemoryVectorStore 内存向量存储。
type InMemoryVectorStore struct {
	chunks []Chunk
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryVectorStore 创建内存向量存储。
func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		chunks: make([]Chunk, 0),
		logger: logger.With(zap.String("component", "inmemory_vector_store")),
	}
}

// AddChunks 添加 chunk。
func (s *InMemoryVectorStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if c.Embedding == nil {
			return &missingEmbeddingError{id: c.ID}
		}
		s.chunks = append(s.chunks, c)
	}

	s.logger.Info("chunks added to vector store",
		zap.Int("count", len(chunks)),
		zap.Int("total", len(s.chunks)))
	return nil
}

// Search 按余弦相似度搜索。
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return []VectorSearchResult{}, nil
	}

	results := make([]VectorSearchResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		if c.Embedding == nil {
			continue
		}
		results = append(results, VectorSearchResult{
			Chunk: c,
			Score: cosineSimilarity(queryEmbedding, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Count 返回 chunk 数量。
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

type missingEmbeddingError struct{ id string }

func (e *missingEmbeddingError) Error() string {
	return "chunk " + e.id + " has no embedding"
}

// cosineSimilarity 计算余弦相似度。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
