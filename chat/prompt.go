package chat

import (
	"fmt"
	"strings"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
)

const systemPromptKBAndWeb = `You are a helpful AI assistant with access to a knowledge base and current web information.

KNOWLEDGE BASE CONTEXT (Primary Source):
%s

CURRENT WEB INFORMATION (Secondary Source):
%s

INSTRUCTIONS:
1. Prioritize the knowledge base context for your main answer
2. Use web information only to supplement or update knowledge base information
3. Always cite your sources in your response
4. If knowledge base has sufficient information, use it as the primary source`

const systemPromptKBOnly = `You are a helpful AI assistant with access to a knowledge base.

KNOWLEDGE BASE CONTEXT:
%s

INSTRUCTIONS:
1. Answer based primarily on the knowledge base context provided
2. If the context doesn't contain enough information, acknowledge this limitation
3. Always mention that your answer is based on the knowledge base
4. If the user asks for more details, suggest they ask for "more information" or "additional details" to get web search results
5. Do not make up information not in the context`

const systemPromptNoContext = `You are a helpful AI assistant. The knowledge base search didn't return relevant results for this query. Please provide a general answer based on your training data and mention that you don't have specific information in your knowledge base for this topic.`

// buildSystemPrompt 按上下文内容选择三种系统提示词之一：
// 知识库+网络 / 仅知识库 / 无上下文。
func buildSystemPrompt(sources []rag.Source) string {
	var kbBlocks, webBlocks []string
	for _, s := range sources {
		switch s.(type) {
		case rag.KnowledgeBaseSource:
			kbBlocks = append(kbBlocks, rag.RenderSource(s))
		case rag.WebSearchSource:
			webBlocks = append(webBlocks, rag.RenderSource(s))
		}
	}

	kbText := strings.Join(kbBlocks, "\n\n")
	webText := strings.Join(webBlocks, "\n\n")

	switch {
	case kbText != "" && webText != "":
		return fmt.Sprintf(systemPromptKBAndWeb, kbText, webText)
	case kbText != "":
		return fmt.Sprintf(systemPromptKBOnly, kbText)
	case webText != "":
		// 只有网络结果时退化到组合模板，知识库块为空
		return fmt.Sprintf(systemPromptKBAndWeb, "(no knowledge base matches)", webText)
	default:
		return systemPromptNoContext
	}
}
