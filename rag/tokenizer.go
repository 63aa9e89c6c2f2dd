package rag

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Tokenizer 上下文组装使用的 token 计数接口。
type Tokenizer interface {
	CountTokens(text string) int
}

// ====== tiktoken 实现 ======

// TiktokenTokenizer 基于 tiktoken 的计数器，编码数据懒加载。
// 编码初始化失败时回退到字符估算并记录警告。
type TiktokenTokenizer struct {
	model    string
	encoding string
	logger   *zap.Logger

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// modelEncodings 模型名到 tiktoken 编码的映射。
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4-turbo":            "cl100k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
}

// NewTiktokenTokenizer 为给定模型创建计数器。
// 未知模型先做前缀匹配，再兜底到 cl100k_base。
func NewTiktokenTokenizer(model string, logger *zap.Logger) *TiktokenTokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	// OpenRouter 风格的 "openai/gpt-3.5-turbo" 去掉厂商前缀再查
	bare := model
	for i := len(model) - 1; i >= 0; i-- {
		if model[i] == '/' {
			bare = model[i+1:]
			break
		}
	}

	encoding, ok := modelEncodings[bare]
	if !ok {
		for prefix, enc := range modelEncodings {
			if len(bare) >= len(prefix) && bare[:len(prefix)] == prefix {
				encoding = enc
				ok = true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}

	return &TiktokenTokenizer{
		model:    model,
		encoding: encoding,
		logger:   logger,
	}
}

// init 懒加载 tiktoken 编码（首次使用可能下载编码数据）。
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens 返回文本的 token 数，编码不可用时回退到估算。
func (t *TiktokenTokenizer) CountTokens(text string) int {
	if err := t.init(); err != nil {
		t.logger.Warn("tiktoken unavailable, falling back to estimate", zap.Error(err))
		return estimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Name 返回编码标识。
func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// ====== 估算实现 ======

// EstimatorTokenizer 不依赖编码数据的估算计数器：
// CJK 字符按 1 token，其余按 4 字符 1 token。
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer 创建估算计数器。
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

// CountTokens 实现 Tokenizer。
func (e *EstimatorTokenizer) CountTokens(text string) int {
	return estimateTokens(text)
}

func estimateTokens(text string) int {
	cjk := 0
	other := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		} else {
			other++
		}
	}
	tokens := cjk + (other+3)/4
	if tokens == 0 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
