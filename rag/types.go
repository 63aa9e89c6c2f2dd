package rag

import (
	"encoding/json"
	"fmt"
)

// Chunk 摄取后的文本块，检索的原子单位。摄取后不可变。
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding,omitempty"`
	Filename  string    `json:"filename"`
	Topic     string    `json:"topic"`
	Category  string    `json:"category"`
}

// Candidate 检索过程中的瞬态候选，只在单次检索调用内存在。
type Candidate struct {
	Chunk         Chunk   `json:"chunk"`
	VectorScore   float64 `json:"vector_score"`
	GraphScore    float64 `json:"graph_score"`
	CombinedScore float64 `json:"combined_score"`
	HopDistance   int     `json:"hop_distance"`
}

// SourceKind 引用来源类型标签。
type SourceKind string

const (
	SourceKindKnowledgeBase SourceKind = "knowledge_base"
	SourceKindWebSearch     SourceKind = "web_search"
)

// Source 用户可见的引用来源。标签联合：KnowledgeBaseSource 或
// WebSearchSource，消费方（重排序、组装、序列化）对 Kind 做穷尽匹配。
// 创建后不可变。
type Source interface {
	Kind() SourceKind
}

// KnowledgeBaseSource 知识库引用。
type KnowledgeBaseSource struct {
	Topic       string  `json:"topic"`
	Filename    string  `json:"filename"`
	Category    string  `json:"category"`
	Score       float64 `json:"score"`
	TextPreview string  `json:"text_preview"`
	// Primary 标记得分最高的知识库来源，供 UI 强调
	Primary bool `json:"primary"`
}

// Kind 实现 Source。
func (KnowledgeBaseSource) Kind() SourceKind { return SourceKindKnowledgeBase }

// WebSearchSource 网络搜索引用。Note 携带标题与摘要，进入提示词上下文。
type WebSearchSource struct {
	Provider string `json:"provider"`
	Query    string `json:"query"`
	Note     string `json:"note"`
}

// Kind 实现 Source。
func (WebSearchSource) Kind() SourceKind { return SourceKindWebSearch }

// MarshalSource 序列化来源，附带 type 判别字段。
func MarshalSource(s Source) ([]byte, error) {
	switch v := s.(type) {
	case KnowledgeBaseSource:
		return json.Marshal(struct {
			Type SourceKind `json:"type"`
			KnowledgeBaseSource
		}{SourceKindKnowledgeBase, v})
	case WebSearchSource:
		return json.Marshal(struct {
			Type SourceKind `json:"type"`
			WebSearchSource
		}{SourceKindWebSearch, v})
	default:
		return nil, fmt.Errorf("unknown source kind %T", s)
	}
}
