// chatbot 启动 GraphRAG 聊天服务：
// 加载配置、装配检索与生成流水线、暴露 HTTP API。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/chat"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/config"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/history"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/ingest"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/logging"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/metrics"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/server"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/telemetry"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm/embedding"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm/openrouter"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/websearch"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径（yaml）")
		kbDir      = flag.String("kb", "", "启动时加载的知识库目录（可选）")
	)
	flag.Parse()

	if err := run(*configPath, *kbDir); err != nil {
		fmt.Fprintf(os.Stderr, "chatbot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, kbDir string) error {
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

	shutdownTracing := telemetry.Setup()
	defer shutdownTracing(context.Background()) //nolint:errcheck

	collector := metrics.NewCollector(nil)

	// ====== 检索侧 ======
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

	retriever := rag.NewHybridRetriever(embedder, store, graph, rag.HybridRetrieverConfig{
		VectorWeight:       cfg.Retrieval.VectorWeight,
		GraphWeight:        cfg.Retrieval.GraphWeight,
		ExpandLimit:        cfg.Retrieval.ExpandLimit,
		DefaultVectorScore: cfg.Retrieval.DefaultVectorScore,
		VectorTimeout:      cfg.Retrieval.VectorTimeout,
	}, logger)

	// ====== 网络搜索侧 ======
	var gateway *rag.WebSearchGateway
	if cfg.WebSearch.APIKey != "" {
		searcher, err := websearch.NewSearcher(websearch.Config{
			Provider: websearch.Provider(cfg.WebSearch.Provider),
			APIKey:   cfg.WebSearch.APIKey,
			Timeout:  cfg.WebSearch.Timeout,
		})
		if err != nil {
			return err
		}

		var cache websearch.ResultCache
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			cache = websearch.NewRedisCache(client, "")
			logger.Info("web search cache on redis", zap.String("addr", cfg.Redis.Addr))
		}

		gateway = rag.NewWebSearchGateway(searcher, cache, rag.WebSearchGatewayConfig{
			MaxResults:        cfg.WebSearch.MaxResults,
			Timeout:           cfg.WebSearch.Timeout,
			MinConfidence:     cfg.WebSearch.MinConfidence,
			CacheTTL:          cfg.WebSearch.CacheTTL,
			RequestsPerMinute: cfg.WebSearch.RequestsPerMinute,
		}, logger)
	} else {
		logger.Warn("web search disabled, no api key configured")
	}

	// ====== 生成侧 ======
	provider := openrouter.New(openrouter.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	tokenizer := rag.NewTiktokenTokenizer(cfg.Context.TokenizerModel, logger)
	assembler := rag.NewContextAssembler(tokenizer, logger)
	reranker := rag.NewReranker(cfg.Context.MaxSources, logger)

	histStore, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		return err
	}

	orchestrator := chat.NewOrchestrator(
		retriever, gateway, reranker, assembler, provider, histStore, collector,
		chat.Config{
			Model:         cfg.LLM.Model,
			MaxTokens:     cfg.LLM.MaxTokens,
			Temperature:   cfg.LLM.Temperature,
			TopK:          cfg.Retrieval.TopK,
			ExpandDepth:   cfg.Retrieval.ExpandDepth,
			ContextBudget: cfg.Context.Budget,
			HistoryLimit:  cfg.Context.HistoryLimit,
		}, logger)

	// 可选的启动期知识库加载
	if kbDir != "" {
		loader := ingest.NewLoader(embedder, store, graph, logger)
		stats, err := loader.LoadDirectory(context.Background(), kbDir)
		if err != nil {
			return fmt.Errorf("load knowledge base: %w", err)
		}
		logger.Info("knowledge base ready",
			zap.Int("chunks", stats.Chunks),
			zap.Int("edges", stats.Edges))
	}

	srv := server.New(orchestrator, histStore, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
