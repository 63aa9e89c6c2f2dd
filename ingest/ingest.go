// Package ingest 从文本文件目录构建知识库：
// 嵌入、写入向量索引、并把文本块接进关系图。
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm/embedding"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
)

// categoryKeywords 文件名关键词到类别的映射，按声明顺序匹配。
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Technology", []string{"ai", "artificial", "machine", "data", "quantum", "blockchain"}},
	{"Science", []string{"biotech", "renewable", "space", "climate"}},
	{"Business", []string{"digital", "startup", "sustainable", "fintech", "remote"}},
	{"Health", []string{"telemedicine", "precision", "mental", "public", "healthcare"}},
}

// Loader 知识库加载器。
type Loader struct {
	embedder embedding.Embedder
	store    rag.VectorStore
	graph    *rag.RelationshipGraph
	logger   *zap.Logger
}

// NewLoader 创建加载器。
func NewLoader(embedder embedding.Embedder, store rag.VectorStore, graph *rag.RelationshipGraph, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		embedder: embedder,
		store:    store,
		graph:    graph,
		logger:   logger.With(zap.String("component", "kb_loader")),
	}
}

// Stats 一次加载的统计。
type Stats struct {
	Files   int `json:"files"`
	Chunks  int `json:"chunks"`
	Edges   int `json:"edges"`
	Skipped int `json:"skipped"`
}

// LoadDirectory 加载目录下所有 .txt 文件。
// 空文件跳过；topic 取自文件名，category 按文件名关键词推断。
func (l *Loader) LoadDirectory(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base directory: %w", err)
	}

	stats := &Stats{}
	var chunks []rag.Chunk

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("file unreadable, skipping", zap.String("file", path), zap.Error(err))
			stats.Skipped++
			continue
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			stats.Skipped++
			continue
		}

		emb, err := l.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", entry.Name(), err)
		}

		chunks = append(chunks, rag.Chunk{
			ID:        uuid.NewString(),
			Text:      text,
			Embedding: emb,
			Filename:  entry.Name(),
			Topic:     TopicFromFilename(entry.Name()),
			Category:  CategoryFromFilename(entry.Name()),
		})
		stats.Files++
	}

	if len(chunks) == 0 {
		l.logger.Warn("no knowledge base files loaded", zap.String("dir", dir))
		return stats, nil
	}

	if err := l.AddChunks(ctx, chunks); err != nil {
		return nil, err
	}
	stats.Chunks = len(chunks)
	if l.graph != nil {
		stats.Edges = l.graph.EdgeCount()
	}

	l.logger.Info("knowledge base loaded",
		zap.String("dir", dir),
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("edges", stats.Edges),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// AddChunks 把已嵌入的 chunk 同时写入向量索引和关系图。
// 图内自动按嵌入相似度建边。
func (l *Loader) AddChunks(ctx context.Context, chunks []rag.Chunk) error {
	if err := l.store.AddChunks(ctx, chunks); err != nil {
		return fmt.Errorf("add chunks to vector store: %w", err)
	}
	if l.graph == nil {
		return nil
	}
	for _, c := range chunks {
		if err := l.graph.AddChunk(c); err != nil {
			return fmt.Errorf("add chunk %s to graph: %w", c.ID, err)
		}
	}
	return nil
}

// TopicFromFilename 从文件名推主题："ai_trends.txt" → "Ai Trends"。
func TopicFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".txt")
	name = strings.ReplaceAll(name, "_", " ")
	return titleCase(name)
}

// CategoryFromFilename 按文件名关键词推类别，无命中归入 General。
func CategoryFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(lower, w) {
				return ck.category
			}
		}
	}
	return "General"
}

// titleCase 逐词首字母大写。
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		for j := 1; j < len(runes); j++ {
			runes[j] = unicode.ToLower(runes[j])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
