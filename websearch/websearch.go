// Package websearch 提供可插拔的网络搜索客户端（Brave / Serper）。
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Result 一条搜索结果。
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher 搜索提供方接口。
type Searcher interface {
	// Search 返回至多 k 条结果
	Search(ctx context.Context, query string, k int) ([]Result, error)
	// Name 返回提供方标识
	Name() string
}

// Provider 提供方标识。
type Provider string

const (
	ProviderBrave  Provider = "brave"
	ProviderSerper Provider = "serper"
)

// Config 搜索客户端配置。
type Config struct {
	Provider Provider      `json:"provider"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// NewSearcher 按配置创建搜索客户端。
func NewSearcher(cfg Config) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout == 0 {
		client.Timeout = 10 * time.Second
	}

	switch cfg.Provider {
	case ProviderBrave:
		return &BraveSearcher{apiKey: cfg.APIKey, client: client}, nil
	case ProviderSerper:
		return &SerperSearcher{apiKey: cfg.APIKey, client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported web search provider %q", cfg.Provider)
	}
}
