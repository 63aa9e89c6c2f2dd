package rag

import (
	"container/heap"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// GraphConfig 关系图配置。
type GraphConfig struct {
	// Decay 逐跳衰减因子，必须 < 1
	Decay float64 `json:"decay"`
	// LinkThreshold 摄取时建边的最低余弦相似度
	LinkThreshold float64 `json:"link_threshold"`
}

// DefaultGraphConfig 返回默认配置。
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		Decay:         0.5,
		LinkThreshold: 0.7,
	}
}

// graphEdge 无向边的一半，镜像边存在对端的邻接表里。
type graphEdge struct {
	to     int
	weight float64
}

// RelationshipGraph 文档块之间的加权无向关系图。
// chunk 存放在按整数下标索引的 arena 里，邻接表按下标组织，
// 摄取完成后请求期只读，并发遍历无须额外加锁。
type RelationshipGraph struct {
	cfg    GraphConfig
	chunks []Chunk
	index  map[string]int
	adj    [][]graphEdge
	edges  int
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewRelationshipGraph 创建空图。
func NewRelationshipGraph(cfg GraphConfig, logger *zap.Logger) *RelationshipGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.5
	}
	return &RelationshipGraph{
		cfg:    cfg,
		index:  make(map[string]int),
		logger: logger.With(zap.String("component", "relationship_graph")),
	}
}

// AddChunk 把 chunk 加入 arena，并按嵌入相似度与已有 chunk 建边
// （相似度 > LinkThreshold 时边权 = 相似度）。
func (g *RelationshipGraph) AddChunk(c Chunk) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.ID == "" {
		return fmt.Errorf("chunk id is required")
	}
	if _, exists := g.index[c.ID]; exists {
		return fmt.Errorf("chunk %s already in graph", c.ID)
	}

	idx := len(g.chunks)
	g.chunks = append(g.chunks, c)
	g.adj = append(g.adj, nil)
	g.index[c.ID] = idx

	if c.Embedding == nil {
		return nil
	}
	for other := 0; other < idx; other++ {
		emb := g.chunks[other].Embedding
		if emb == nil {
			continue
		}
		sim := cosineSimilarity(c.Embedding, emb)
		if sim > g.cfg.LinkThreshold {
			g.link(idx, other, clampWeight(sim))
		}
	}
	return nil
}

// AddEdge 在两个已有 chunk 之间建无向边。自环和非法权重被拒绝。
func (g *RelationshipGraph) AddEdge(aID, bID string, weight float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if aID == bID {
		return fmt.Errorf("self-edge %s rejected", aID)
	}
	if weight <= 0 || weight > 1 {
		return fmt.Errorf("edge weight %f out of (0,1]", weight)
	}
	a, ok := g.index[aID]
	if !ok {
		return fmt.Errorf("chunk %s not in graph", aID)
	}
	b, ok := g.index[bID]
	if !ok {
		return fmt.Errorf("chunk %s not in graph", bID)
	}

	for _, e := range g.adj[a] {
		if e.to == b {
			return nil // 已有边，保持原权重
		}
	}
	g.link(a, b, weight)
	return nil
}

// link 双向登记一条边，调用方持有写锁。
func (g *RelationshipGraph) link(a, b int, weight float64) {
	g.adj[a] = append(g.adj[a], graphEdge{to: b, weight: weight})
	g.adj[b] = append(g.adj[b], graphEdge{to: a, weight: weight})
	g.edges++
}

// Chunk 按 id 取 arena 里的 chunk。
func (g *RelationshipGraph) Chunk(id string) (Chunk, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.index[id]
	if !ok {
		return Chunk{}, false
	}
	return g.chunks[idx], true
}

// Len 返回 chunk 数。
func (g *RelationshipGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chunks)
}

// EdgeCount 返回无向边数。
func (g *RelationshipGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Relation 某个 chunk 的一条关系。
type Relation struct {
	Chunk  Chunk   `json:"chunk"`
	Weight float64 `json:"weight"`
}

// Related 返回与 id 直接相连的 chunk，按边权降序。未知 id 视为孤立节点。
func (g *RelationshipGraph) Related(id string) []Relation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]Relation, 0, len(g.adj[idx]))
	for _, e := range g.adj[idx] {
		out = append(out, Relation{Chunk: g.chunks[e.to], Weight: e.weight})
	}
	for i := 0; i < len(out)-1; i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Weight > out[i].Weight {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Expansion 图扩展新收集到的一个 chunk。
// GraphScore 是最优路径的衰减权重：沿路径边权连乘 × decay^hop。
type Expansion struct {
	Chunk       Chunk   `json:"chunk"`
	GraphScore  float64 `json:"graph_score"`
	HopDistance int     `json:"hop_distance"`
	// PathWeight 未衰减的最优路径权重，GraphScore = PathWeight × decay^hop
	PathWeight float64 `json:"path_weight"`
}

// Expand 从种子集合做深度受限的优先级遍历。
// 高权重边先出队，保证扩展偏向更强的关系；种子永不返回；
// 收集到 maxResults 个新 chunk 即提前停止。种子 id 不在图中按
// 孤立节点处理，不报错；空扩展是合法结果。
func (g *RelationshipGraph) Expand(seedIDs []string, maxDepth, maxResults int) []Expansion {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if maxDepth <= 0 || maxResults <= 0 || g.edges == 0 {
		return nil
	}

	settled := make(map[int]bool, len(seedIDs))
	frontier := &expandHeap{}

	for _, id := range seedIDs {
		idx, ok := g.index[id]
		if !ok {
			continue // 孤立节点
		}
		if settled[idx] {
			continue
		}
		settled[idx] = true
		// 种子以满分入队，自身不会被输出
		heap.Push(frontier, &expandItem{idx: idx, path: 1.0, score: 1.0, hop: 0, seed: true})
	}

	var results []Expansion
	for frontier.Len() > 0 && len(results) < maxResults {
		item := heap.Pop(frontier).(*expandItem)

		if !item.seed {
			if settled[item.idx] {
				continue
			}
			// 衰减单调递减，首次出队即最优路径
			settled[item.idx] = true
			results = append(results, Expansion{
				Chunk:       g.chunks[item.idx],
				GraphScore:  item.score,
				HopDistance: item.hop,
				PathWeight:  item.path,
			})
			if len(results) >= maxResults {
				break
			}
		}

		if item.hop >= maxDepth {
			continue
		}
		for _, e := range g.adj[item.idx] {
			if settled[e.to] {
				continue
			}
			hop := item.hop + 1
			path := item.path * e.weight
			heap.Push(frontier, &expandItem{
				idx:   e.to,
				path:  path,
				score: path * pow(g.cfg.Decay, hop),
				hop:   hop,
			})
		}
	}

	g.logger.Debug("graph expansion completed",
		zap.Int("seeds", len(seedIDs)),
		zap.Int("expanded", len(results)),
		zap.Int("max_depth", maxDepth))

	return results
}

// pow 小整数幂。
func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

func clampWeight(w float64) float64 {
	if w > 1 {
		return 1
	}
	return w
}

// ====== 优先级边界（最大堆）======

type expandItem struct {
	idx   int
	path  float64 // 未衰减路径权重
	score float64 // 衰减后的图分
	hop   int
	seed  bool
}

type expandHeap []*expandItem

func (h expandHeap) Len() int           { return len(h) }
func (h expandHeap) Less(i, j int) bool { return h[i].score > h[j].score }
func (h expandHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expandHeap) Push(x any) {
	*h = append(*h, x.(*expandItem))
}

func (h *expandHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
