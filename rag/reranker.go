package rag

import (
	"sort"

	"go.uber.org/zap"
)

// previewLimit 引用预览截断长度（字节）。
const previewLimit = 200

// Reranker 把检索候选和网络搜索结果合并为用户可见的来源列表。
type Reranker struct {
	maxSources int
	logger     *zap.Logger
}

// NewReranker 创建重排序器。maxSources < 1 时使用 8。
func NewReranker(maxSources int, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSources < 1 {
		maxSources = 8
	}
	return &Reranker{
		maxSources: maxSources,
		logger:     logger.With(zap.String("component", "reranker")),
	}
}

// Rank 产出最终来源列表：
//  1. 知识库候选按 (filename, topic) 去重，保留最高综合分；
//  2. 按综合分降序排序（稳定排序，同分保持进入顺序）；
//  3. 最高分来源标记 primary；
//  4. 网络来源追加在知识库来源之后；
//  5. 截断到 maxSources，知识库优先。
func (r *Reranker) Rank(kb []Candidate, web []WebSearchSource) []Source {
	type dedupeKey struct {
		filename string
		topic    string
	}

	best := make(map[dedupeKey]Candidate, len(kb))
	order := make([]dedupeKey, 0, len(kb))
	for _, c := range kb {
		key := dedupeKey{filename: c.Chunk.Filename, topic: c.Chunk.Topic}
		prev, seen := best[key]
		if !seen {
			best[key] = c
			order = append(order, key)
			continue
		}
		if c.CombinedScore > prev.CombinedScore {
			best[key] = c
		}
	}

	deduped := make([]Candidate, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, best[key])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].CombinedScore > deduped[j].CombinedScore
	})

	out := make([]Source, 0, len(deduped)+len(web))
	for i, c := range deduped {
		out = append(out, KnowledgeBaseSource{
			Topic:       c.Chunk.Topic,
			Filename:    c.Chunk.Filename,
			Category:    c.Chunk.Category,
			Score:       c.CombinedScore,
			TextPreview: truncatePreview(c.Chunk.Text),
			Primary:     i == 0,
		})
	}
	for _, w := range web {
		out = append(out, w)
	}

	if len(out) > r.maxSources {
		r.logger.Debug("sources truncated",
			zap.Int("total", len(out)),
			zap.Int("max", r.maxSources))
		out = out[:r.maxSources]
	}
	return out
}

// truncatePreview 按 rune 边界截断预览文本。
func truncatePreview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	runes := []rune(text)
	out := make([]rune, 0, previewLimit)
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > previewLimit {
			break
		}
		out = append(out, r)
	}
	return string(out) + "..."
}
