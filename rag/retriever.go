package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm/embedding"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// HybridRetrieverConfig 混合检索配置。
type HybridRetrieverConfig struct {
	// VectorWeight α：向量分权重，必须大于 GraphWeight，
	// 图扩展只补充直接相关性，不覆盖
	VectorWeight float64 `json:"vector_weight"`
	// GraphWeight β：图分权重
	GraphWeight float64 `json:"graph_weight"`
	// ExpandLimit 图扩展最多新增的 chunk 数
	ExpandLimit int `json:"expand_limit"`
	// DefaultVectorScore 扩展候选无嵌入可重算时的兜底向量分
	DefaultVectorScore float64 `json:"default_vector_score"`
	// VectorTimeout 向量索引查询超时
	VectorTimeout time.Duration `json:"vector_timeout"`
}

// DefaultHybridRetrieverConfig 返回默认配置。
func DefaultHybridRetrieverConfig() HybridRetrieverConfig {
	return HybridRetrieverConfig{
		VectorWeight:       0.7,
		GraphWeight:        0.3,
		ExpandLimit:        10,
		DefaultVectorScore: 0.25,
		VectorTimeout:      5 * time.Second,
	}
}

// HybridRetriever 编排 嵌入 → 向量召回 → 图扩展，产出统一候选池。
type HybridRetriever struct {
	embedder embedding.Embedder
	store    VectorStore
	graph    *RelationshipGraph
	cfg      HybridRetrieverConfig
	logger   *zap.Logger
}

// NewHybridRetriever 创建混合检索器。
func NewHybridRetriever(
	embedder embedding.Embedder,
	store VectorStore,
	graph *RelationshipGraph,
	cfg HybridRetrieverConfig,
	logger *zap.Logger,
) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		embedder: embedder,
		store:    store,
		graph:    graph,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "hybrid_retriever")),
	}
}

// Retrieve 执行混合检索。
// expandDepth = 0 关闭图扩展（纯向量检索）。
// 向量索引不可用时返回空候选列表和 UPSTREAM_VECTOR 错误，
// 由编排器降级处理，绝不让请求整体失败。
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK, expandDepth int) ([]Candidate, error) {
	if topK < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "top_k must be >= 1")
	}
	if expandDepth < 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "expand_depth must be >= 0")
	}

	start := time.Now()

	queryEmb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return []Candidate{}, types.NewUpstreamUnavailable(types.UpstreamVector, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.VectorTimeout)
	defer cancel()

	hits, err := r.store.Search(searchCtx, queryEmb, topK)
	if err != nil {
		r.logger.Warn("vector search failed", zap.Error(err))
		return []Candidate{}, types.NewUpstreamUnavailable(types.UpstreamVector, err)
	}

	// 种子候选：vector_score = 相似度，graph_score = 0，hop = 0
	pool := make(map[string]Candidate, len(hits))
	order := make([]string, 0, len(hits))
	seedIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Chunk.ID == "" {
			continue
		}
		if _, dup := pool[h.Chunk.ID]; dup {
			continue
		}
		pool[h.Chunk.ID] = Candidate{
			Chunk:       h.Chunk,
			VectorScore: h.Score,
		}
		order = append(order, h.Chunk.ID)
		seedIDs = append(seedIDs, h.Chunk.ID)
	}

	expanded := 0
	if expandDepth > 0 && r.graph != nil {
		for _, exp := range r.graph.Expand(seedIDs, expandDepth, r.cfg.ExpandLimit) {
			// 种子赢得并列：Expand 不返回种子，这里再兜一层
			if _, exists := pool[exp.Chunk.ID]; exists {
				continue
			}
			pool[exp.Chunk.ID] = Candidate{
				Chunk:       exp.Chunk,
				VectorScore: r.expansionVectorScore(queryEmb, exp.Chunk),
				GraphScore:  exp.GraphScore,
				HopDistance: exp.HopDistance,
			}
			order = append(order, exp.Chunk.ID)
			expanded++
		}
	}

	// combined = α·vector + β·graph
	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		c := pool[id]
		c.CombinedScore = r.cfg.VectorWeight*c.VectorScore + r.cfg.GraphWeight*c.GraphScore
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})

	r.logger.Debug("hybrid retrieval completed",
		zap.Int("seeds", len(seedIDs)),
		zap.Int("expanded", expanded),
		zap.Int("candidates", len(out)),
		zap.Duration("duration", time.Since(start)))

	return out, nil
}

// expansionVectorScore 为扩展候选求向量分：
// 有嵌入时直接重算余弦相似度，否则使用配置的兜底默认值。
func (r *HybridRetriever) expansionVectorScore(queryEmb []float64, c Chunk) float64 {
	if len(c.Embedding) > 0 {
		return cosineSimilarity(queryEmb, c.Embedding)
	}
	return r.cfg.DefaultVectorScore
}

// TopScore 返回候选池的最高综合分，空池返回 0。
func TopScore(candidates []Candidate) float64 {
	top := 0.0
	for _, c := range candidates {
		if c.CombinedScore > top {
			top = c.CombinedScore
		}
	}
	return top
}

// String 便于日志观察候选。
func (c Candidate) String() string {
	return fmt.Sprintf("%s(v=%.3f g=%.3f c=%.3f hop=%d)",
		c.Chunk.ID, c.VectorScore, c.GraphScore, c.CombinedScore, c.HopDistance)
}
