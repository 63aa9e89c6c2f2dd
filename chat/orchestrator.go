// Package chat 实现聊天编排：检索、生成与降级策略。
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/history"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/metrics"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/internal/telemetry"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/llm"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// State 单次请求的编排状态。
type State string

const (
	StateIdle       State = "idle"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateCompleted  State = "completed"
	StateErrored    State = "errored"
)

// Request 一次聊天请求。
type Request struct {
	// ConversationID 可为空：空表示无历史的单轮对话
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
	// TopK / ExpandDepth 为 0 时使用配置默认值
	TopK        int `json:"top_k,omitempty"`
	ExpandDepth int `json:"expand_depth,omitempty"`
}

// Answer 聊天回答及其元数据。
type Answer struct {
	ResponseText string       `json:"response_text"`
	Sources      []rag.Source `json:"sources"`
	// Degraded 标记有上游（向量索引或网络搜索）失败被吸收
	Degraded      bool   `json:"degraded"`
	Model         string `json:"model"`
	TotalTokens   int    `json:"total_tokens"`
	KBDocuments   int    `json:"kb_documents"`
	WebSearchUsed bool   `json:"web_search_used"`
	State         State  `json:"state"`
}

// Config 编排器配置。
type Config struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	TopK          int `json:"top_k"`
	ExpandDepth   int `json:"expand_depth"`
	ContextBudget int `json:"context_budget"`
	HistoryLimit  int `json:"history_limit"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Model:         "openai/gpt-3.5-turbo",
		MaxTokens:     1000,
		Temperature:   0.7,
		TopK:          5,
		ExpandDepth:   2,
		ContextBudget: 2048,
		HistoryLimit:  10,
	}
}

// Orchestrator 把一次请求推过 检索 → 生成 流水线。
// 检索侧失败只降级，模型失败让请求失败。
type Orchestrator struct {
	retriever *rag.HybridRetriever
	gateway   *rag.WebSearchGateway
	reranker  *rag.Reranker
	assembler *rag.ContextAssembler
	provider  llm.Provider
	store     *history.Store      // 可为 nil
	collector *metrics.Collector  // 可为 nil
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator 创建编排器。store 和 collector 可为 nil。
func NewOrchestrator(
	retriever *rag.HybridRetriever,
	gateway *rag.WebSearchGateway,
	reranker *rag.Reranker,
	assembler *rag.ContextAssembler,
	provider llm.Provider,
	store *history.Store,
	collector *metrics.Collector,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		retriever: retriever,
		gateway:   gateway,
		reranker:  reranker,
		assembler: assembler,
		provider:  provider,
		store:     store,
		collector: collector,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "chat_orchestrator")),
	}
}

// Chat 处理一次聊天请求。
// 状态机：Idle → Retrieving → Generating → Completed；
// 模型失败进入 Errored 并返回错误，检索失败只置 Degraded。
func (o *Orchestrator) Chat(ctx context.Context, req *Request) (*Answer, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query is required")
	}

	ctx, span := telemetry.Tracer().Start(ctx, "chat")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", req.ConversationID))

	start := time.Now()
	topK := req.TopK
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	expandDepth := req.ExpandDepth
	if expandDepth == 0 {
		expandDepth = o.cfg.ExpandDepth
	}
	if expandDepth < 0 {
		expandDepth = 0
	}

	// ====== Retrieving：向量腿与网络腿并发 ======
	var (
		kb       []rag.Candidate
		web      []rag.WebSearchSource
		webTried bool
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		retrieveStart := time.Now()
		candidates, err := o.retriever.Retrieve(gctx, req.Query, topK, expandDepth)
		if err != nil {
			// 向量索引不可用：吸收并降级
			o.logger.Warn("retrieval degraded", zap.Error(err))
			degraded = true
			o.observeRetrieval("degraded", retrieveStart, 0)
			return nil
		}
		kb = candidates
		o.observeRetrieval("ok", retrieveStart, len(candidates))
		return nil
	})

	if o.gateway != nil && o.gateway.ShouldSearch(req.Query) {
		webTried = true
		o.countWebSearch("keyword")
		g.Go(func() error {
			web = o.gateway.Search(gctx, req.Query)
			return nil
		})
	}

	// 两条腿都不返回错误，Wait 只会传播 ctx 取消
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 知识库置信度不足且网络腿没跑过时兜底搜索
	if o.gateway != nil && !webTried && o.gateway.LowConfidence(kb) {
		o.countWebSearch("low_confidence")
		web = o.gateway.Search(ctx, req.Query)
		webTried = true
	}
	if webTried && len(web) == 0 {
		// 想搜而没搜到（失败或限流）也算降级
		degraded = true
	}

	// ====== 重排序与上下文组装 ======
	sources := o.reranker.Rank(kb, web)
	assembled, err := o.assembler.Assemble(sources, o.cfg.ContextBudget)
	if err != nil {
		o.countChat("errored", start)
		return nil, err
	}

	// ====== Generating ======
	messages, err := o.buildMessages(ctx, req, assembled.Sources)
	if err != nil {
		o.countChat("errored", start)
		return nil, err
	}

	resp, err := o.provider.Completion(ctx, &llm.ChatRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		o.countChat("errored", start)
		o.logger.Error("model completion failed", zap.Error(err))
		return nil, err
	}

	answer := &Answer{
		ResponseText:  resp.Text(),
		Sources:       assembled.Sources,
		Degraded:      degraded,
		Model:         resp.Model,
		TotalTokens:   resp.Usage.TotalTokens,
		KBDocuments:   countKBSources(assembled.Sources),
		WebSearchUsed: len(web) > 0,
		State:         StateCompleted,
	}
	if answer.Model == "" {
		answer.Model = o.cfg.Model
	}

	o.persistTurn(ctx, req, answer)

	outcome := "completed"
	if degraded {
		outcome = "degraded"
	}
	o.countChat(outcome, start)
	o.observeTokens(resp)

	o.logger.Info("chat completed",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("kb_documents", answer.KBDocuments),
		zap.Bool("web_search_used", answer.WebSearchUsed),
		zap.Bool("degraded", answer.Degraded),
		zap.Duration("duration", time.Since(start)))

	return answer, nil
}

// buildMessages 拼装提示词：系统提示 + 历史轮次 + 当前问题。
func (o *Orchestrator) buildMessages(ctx context.Context, req *Request, sources []rag.Source) ([]llm.Message, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildSystemPrompt(sources)},
	}

	if o.store != nil && req.ConversationID != "" {
		turns, err := o.store.RecentTurns(ctx, req.ConversationID, o.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("load conversation history: %w", err)
		}
		for _, t := range turns {
			messages = append(messages, llm.Message{Role: llm.Role(t.Role), Content: t.Content})
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Query})
	return messages, nil
}

// persistTurn 在成功生成后落库。失败轮次不会走到这里。
// 持久化失败只告警，回答已经产生，不能因此丢掉。
func (o *Orchestrator) persistTurn(ctx context.Context, req *Request, answer *Answer) {
	if o.store == nil || req.ConversationID == "" {
		return
	}

	metadata, err := marshalSources(answer)
	if err != nil {
		o.logger.Warn("source metadata marshal failed", zap.Error(err))
		metadata = ""
	}
	if err := o.store.AppendTurn(ctx, req.ConversationID, req.Query, answer.ResponseText, metadata); err != nil {
		o.logger.Warn("turn persistence failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err))
	}
}

// marshalSources 把来源列表序列化为消息元数据。
func marshalSources(answer *Answer) (string, error) {
	parts := make([]json.RawMessage, 0, len(answer.Sources))
	for _, s := range answer.Sources {
		raw, err := rag.MarshalSource(s)
		if err != nil {
			return "", err
		}
		parts = append(parts, raw)
	}
	payload := map[string]any{
		"sources":         parts,
		"model":           answer.Model,
		"total_tokens":    answer.TotalTokens,
		"kb_documents":    answer.KBDocuments,
		"web_search_used": answer.WebSearchUsed,
		"degraded":        answer.Degraded,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func countKBSources(sources []rag.Source) int {
	n := 0
	for _, s := range sources {
		if s.Kind() == rag.SourceKindKnowledgeBase {
			n++
		}
	}
	return n
}

// ====== 指标封装（collector 可为 nil）======

func (o *Orchestrator) observeRetrieval(outcome string, start time.Time, candidates int) {
	if o.collector == nil {
		return
	}
	o.collector.RetrievalTotal.WithLabelValues(outcome).Inc()
	o.collector.RetrievalDuration.Observe(time.Since(start).Seconds())
	o.collector.CandidatesPerCall.Observe(float64(candidates))
}

func (o *Orchestrator) countWebSearch(reason string) {
	if o.collector == nil {
		return
	}
	o.collector.WebSearchTotal.WithLabelValues(reason).Inc()
}

func (o *Orchestrator) countChat(outcome string, start time.Time) {
	if o.collector == nil {
		return
	}
	o.collector.ChatTotal.WithLabelValues(outcome).Inc()
	o.collector.ChatDuration.Observe(time.Since(start).Seconds())
}

func (o *Orchestrator) observeTokens(resp *llm.ChatResponse) {
	if o.collector == nil {
		return
	}
	o.collector.TokensTotal.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
	o.collector.TokensTotal.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))
}
