package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/websearch"
)

// webTriggerKeywords 触发网络搜索的查询关键词。
// 命中任意一个即认为问题需要时效性或知识库之外的补充信息。
var webTriggerKeywords = []string{
	"current", "latest", "today", "recent", "now",
	"breaking", "news",
	"more", "additional", "expand", "elaborate", "details",
	"comprehensive", "complete", "update", "new",
	"advance", "development", "trend", "state of", "overview",
}

// yearPattern 形如 2024、2025 的年份也视为时效性信号。
var yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

// WebSearchGatewayConfig 网络搜索网关配置。
type WebSearchGatewayConfig struct {
	// MaxResults 单次搜索最多取的结果数
	MaxResults int `json:"max_results"`
	// Timeout 单次搜索的硬超时
	Timeout time.Duration `json:"timeout"`
	// MinConfidence 知识库最高综合分低于该值时触发兜底搜索
	MinConfidence float64 `json:"min_confidence"`
	// CacheTTL 搜索结果缓存时长
	CacheTTL time.Duration `json:"cache_ttl"`
	// RequestsPerMinute 对提供方的限流；0 表示不限
	RequestsPerMinute int `json:"requests_per_minute"`
}

// DefaultWebSearchGatewayConfig 返回默认配置。
func DefaultWebSearchGatewayConfig() WebSearchGatewayConfig {
	return WebSearchGatewayConfig{
		MaxResults:        5,
		Timeout:           10 * time.Second,
		MinConfidence:     0.35,
		CacheTTL:          30 * time.Minute,
		RequestsPerMinute: 30,
	}
}

// WebSearchGateway 守在外部搜索提供方前面：
// 关键词触发 + 低置信度兜底，带缓存、限流和硬超时。
// 搜索失败只降级，永远不会让聊天请求整体失败。
type WebSearchGateway struct {
	searcher websearch.Searcher
	cache    websearch.ResultCache
	limiter  *rate.Limiter
	cfg      WebSearchGatewayConfig
	logger   *zap.Logger
}

// NewWebSearchGateway 创建网关。cache 为 nil 时使用进程内缓存。
func NewWebSearchGateway(
	searcher websearch.Searcher,
	cache websearch.ResultCache,
	cfg WebSearchGatewayConfig,
	logger *zap.Logger,
) *WebSearchGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = websearch.NewMemoryCache()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &WebSearchGateway{
		searcher: searcher,
		cache:    cache,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "web_search_gateway")),
	}
}

// ShouldSearch 判断查询本身是否需要网络搜索（关键词触发）。
func (g *WebSearchGateway) ShouldSearch(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range webTriggerKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return yearPattern.MatchString(q)
}

// LowConfidence 判断知识库候选是否不足以回答：
// 空候选池，或最高综合分低于 MinConfidence。
func (g *WebSearchGateway) LowConfidence(kbCandidates []Candidate) bool {
	if len(kbCandidates) == 0 {
		return true
	}
	return TopScore(kbCandidates) < g.cfg.MinConfidence
}

// Search 执行一次带缓存、限流、硬超时的搜索。
// 任何失败（提供方出错、限流拒绝、超时）都返回 nil，不返回错误。
func (g *WebSearchGateway) Search(ctx context.Context, query string) []WebSearchSource {
	if g.searcher == nil {
		return nil
	}

	key := fmt.Sprintf("%s:%d:%s", g.searcher.Name(), g.cfg.MaxResults, strings.ToLower(strings.TrimSpace(query)))
	if results, ok := g.cache.Get(ctx, key); ok {
		g.logger.Debug("web search cache hit", zap.String("query", query))
		return g.toSources(query, results)
	}

	if g.limiter != nil && !g.limiter.Allow() {
		g.logger.Warn("web search rate limited", zap.String("query", query))
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	results, err := g.searcher.Search(searchCtx, query, g.cfg.MaxResults)
	if err != nil {
		g.logger.Warn("web search failed, degrading",
			zap.String("provider", g.searcher.Name()),
			zap.Error(err))
		return nil
	}

	g.cache.Set(ctx, key, results, g.cfg.CacheTTL)
	g.logger.Debug("web search completed",
		zap.String("provider", g.searcher.Name()),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return g.toSources(query, results)
}

// MaybeSearch 按策略决定是否搜索：关键词触发，或知识库候选置信度不足。
func (g *WebSearchGateway) MaybeSearch(ctx context.Context, query string, kbCandidates []Candidate) []WebSearchSource {
	if !g.ShouldSearch(query) && !g.LowConfidence(kbCandidates) {
		return nil
	}
	return g.Search(ctx, query)
}

// toSources 把提供方结果转成引用来源。
func (g *WebSearchGateway) toSources(query string, results []websearch.Result) []WebSearchSource {
	if len(results) == 0 {
		return nil
	}
	out := make([]WebSearchSource, 0, len(results))
	for _, r := range results {
		note := r.Title
		if r.Snippet != "" {
			note += ": " + r.Snippet
		}
		if r.URL != "" {
			note += " (" + r.URL + ")"
		}
		out = append(out, WebSearchSource{
			Provider: g.searcher.Name(),
			Query:    query,
			Note:     note,
		})
	}
	return out
}
