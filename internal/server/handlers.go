package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/chat"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/history"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/rag"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// chatResponse 聊天接口的线上形态。Sources 用带 type 判别字段的 JSON。
type chatResponse struct {
	ResponseText  string            `json:"response"`
	Sources       []json.RawMessage `json:"sources"`
	Degraded      bool              `json:"degraded"`
	Model         string            `json:"model"`
	TotalTokens   int               `json:"total_tokens"`
	KBDocuments   int               `json:"rag_documents_used"`
	WebSearchUsed bool              `json:"web_search_used"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chat.Request
	if err := c.Bind(&req); err != nil {
		return types.NewError(types.ErrInvalidRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return types.NewError(types.ErrInvalidRequest, "query is required")
	}

	answer, err := s.orchestrator.Chat(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	sources := make([]json.RawMessage, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		raw, err := rag.MarshalSource(src)
		if err != nil {
			return err
		}
		sources = append(sources, raw)
	}

	return c.JSON(http.StatusOK, chatResponse{
		ResponseText:  answer.ResponseText,
		Sources:       sources,
		Degraded:      answer.Degraded,
		Model:         answer.Model,
		TotalTokens:   answer.TotalTokens,
		KBDocuments:   answer.KBDocuments,
		WebSearchUsed: answer.WebSearchUsed,
	})
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(c echo.Context) error {
	if s.store == nil {
		return types.NewError(types.ErrInvalidRequest, "conversation persistence is disabled")
	}

	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return types.NewError(types.ErrInvalidRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New conversation"
	}

	conv, err := s.store.CreateConversation(c.Request().Context(), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conv)
}

func (s *Server) handleListConversations(c echo.Context) error {
	if s.store == nil {
		return types.NewError(types.ErrInvalidRequest, "conversation persistence is disabled")
	}

	convs, err := s.store.ListConversations(c.Request().Context(), 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": convs})
}

type conversationDetail struct {
	history.Conversation
	Messages []history.Message `json:"messages"`
}

func (s *Server) handleGetConversation(c echo.Context) error {
	if s.store == nil {
		return types.NewError(types.ErrInvalidRequest, "conversation persistence is disabled")
	}

	ctx := c.Request().Context()
	conv, err := s.store.GetConversation(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	msgs, err := s.store.Messages(ctx, conv.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversationDetail{Conversation: *conv, Messages: msgs})
}

func (s *Server) handleDeleteConversation(c echo.Context) error {
	if s.store == nil {
		return types.NewError(types.ErrInvalidRequest, "conversation persistence is disabled")
	}

	if err := s.store.DeleteConversation(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
