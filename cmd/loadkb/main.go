// loadkb 把一个目录下的 .txt 文件批量嵌入并写入 Qdrant。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/config"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/ingest"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/logging"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm/embedding"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径（yaml）")
		dir        = flag.String("dir", "knowledge_base", "知识库目录")
	)
	flag.Parse()

	if err := run(*configPath, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "loadkb: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dir string) error {
	cfg, err := config.NewLoader().
		WithConfigPath(configPath).
		Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	embedder := embedding.NewHTTPEmbedder(embedding.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	}, logger)

	store := rag.NewQdrantStore(rag.QdrantConfig{
		URL:                  cfg.Qdrant.URL,
		APIKey:               cfg.Qdrant.APIKey,
		Collection:           cfg.Qdrant.Collection,
		Timeout:              cfg.Qdrant.Timeout,
		AutoCreateCollection: cfg.Qdrant.AutoCreateCollection,
	}, logger)

	graph := rag.NewRelationshipGraph(rag.GraphConfig{
		Decay:         cfg.Retrieval.Decay,
		LinkThreshold: cfg.Retrieval.LinkThreshold,
	}, logger)

	loader := ingest.NewLoader(embedder, store, graph, logger)
	stats, err := loader.LoadDirectory(context.Background(), dir)
	if err != nil {
		return err
	}

	logger.Info("knowledge base load finished",
		zap.String("dir", dir),
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("edges", stats.Edges),
		zap.Int("skipped", stats.Skipped))
	return nil
}
