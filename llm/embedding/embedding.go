// Package embedding 提供把文本映射为定长向量的 Embedder 接口及 OpenAI 兼容实现。
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// Embedder 把文本映射为定长向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// Config HTTP 嵌入提供者配置。
type Config struct {
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"api_key"`
	Model      string        `json:"model"`
	Dimensions int           `json:"dimensions"`
	Timeout    time.Duration `json:"timeout"`
}

// HTTPEmbedder 通过 OpenAI 兼容的 /embeddings 端点生成向量。
type HTTPEmbedder struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewHTTPEmbedder 创建 HTTP 嵌入提供者。
func NewHTTPEmbedder(cfg Config, logger *zap.Logger) *HTTPEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "http_embedder")),
	}
}

// Dimensions 返回向量维度。
func (e *HTTPEmbedder) Dimensions() int { return e.cfg.Dimensions }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed 生成单条文本的向量。
// 嵌入属于向量检索这条腿，失败按向量上游不可用处理。
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, types.NewUpstreamUnavailable(types.UpstreamVector, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewUpstreamUnavailable(types.UpstreamVector,
			fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewUpstreamUnavailable(types.UpstreamVector, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, types.NewUpstreamUnavailable(types.UpstreamVector,
			fmt.Errorf("embedding endpoint returned no data"))
	}

	vec := out.Data[0].Embedding
	if e.cfg.Dimensions > 0 && len(vec) != e.cfg.Dimensions {
		e.logger.Warn("embedding dimension mismatch",
			zap.Int("expected", e.cfg.Dimensions),
			zap.Int("got", len(vec)))
	}
	return vec, nil
}
