package rag

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// AssembledContext 组装完成的提示词上下文。
// Sources 与上下文中的引用一一对应，顺序一致。
type AssembledContext struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
	Tokens  int      `json:"tokens"`
}

// ContextAssembler 在 token 预算内把来源打包进提示词上下文。
type ContextAssembler struct {
	tokenizer Tokenizer
	logger    *zap.Logger
}

// NewContextAssembler 创建组装器。tokenizer 为 nil 时使用估算实现。
func NewContextAssembler(tokenizer Tokenizer, logger *zap.Logger) *ContextAssembler {
	if tokenizer == nil {
		tokenizer = NewEstimatorTokenizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextAssembler{
		tokenizer: tokenizer,
		logger:    logger.With(zap.String("component", "context_assembler")),
	}
}

// Assemble 按排名顺序把来源装进预算内。
// 第一个装不下的来源整体丢弃并停止打包（不截断单个来源），
// 保证引用列表与实际进入上下文的来源严格一致。
// 所有来源都装不下时返回空上下文，由上层降级为无上下文提示词。
func (a *ContextAssembler) Assemble(sources []Source, budget int) (*AssembledContext, error) {
	if budget <= 0 {
		return nil, types.NewError(types.ErrContextOverflow,
			fmt.Sprintf("context budget %d must be > 0", budget))
	}

	var blocks []string
	var included []Source
	used := 0

	for _, s := range sources {
		block := RenderSource(s)
		cost := a.tokenizer.CountTokens(block)
		if len(blocks) > 0 {
			cost += a.tokenizer.CountTokens("\n\n")
		}
		if used+cost > budget {
			a.logger.Debug("source dropped, budget exhausted",
				zap.Int("used", used),
				zap.Int("cost", cost),
				zap.Int("budget", budget),
				zap.Int("included", len(included)))
			break
		}
		blocks = append(blocks, block)
		included = append(included, s)
		used += cost
	}

	return &AssembledContext{
		Text:    strings.Join(blocks, "\n\n"),
		Sources: included,
		Tokens:  used,
	}, nil
}

// RenderSource 把来源渲染为上下文片段，对 Kind 穷尽匹配。
func RenderSource(s Source) string {
	switch v := s.(type) {
	case KnowledgeBaseSource:
		return fmt.Sprintf("[%s | %s | %s]\n%s", v.Topic, v.Category, v.Filename, v.TextPreview)
	case WebSearchSource:
		return fmt.Sprintf("[web search via %s]\n%s", v.Provider, v.Note)
	default:
		// 未知 Kind 不应出现，出现即为编程错误
		return fmt.Sprintf("[unknown source %T]", s)
	}
}
