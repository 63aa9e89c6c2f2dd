// Package server 暴露 HTTP API。它只做线上适配：
// 把请求交给编排器、把轮次落库，不含检索或生成逻辑。
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/chat"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/history"
	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// Server HTTP 服务。
type Server struct {
	echo         *echo.Echo
	orchestrator *chat.Orchestrator
	store        *history.Store // 可为 nil
	logger       *zap.Logger
}

// New 创建服务并注册路由。
func New(orchestrator *chat.Orchestrator, store *history.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s := &Server{
		echo:         e,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger.With(zap.String("component", "http_server")),
	}
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/conversations", s.handleCreateConversation)
	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations/:id", s.handleGetConversation)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)

	return s
}

// Start 启动监听。
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown 优雅关停。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler 返回底层 handler，供测试使用。
func (s *Server) Handler() http.Handler {
	return s.echo
}

// errorHandler 统一错误响应：结构化错误映射到 HTTP 状态码。
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	var appErr *types.Error
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != nil {
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
	case errors.As(err, &appErr):
		code = statusForCode(appErr.Code)
		msg = appErr.Message
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", code),
			zap.Error(err))
	}

	_ = c.JSON(code, map[string]string{"error": msg})
}

func statusForCode(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrUpstreamVector, types.ErrUpstreamWeb, types.ErrUpstreamModel:
		return http.StatusServiceUnavailable
	case types.ErrModelError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
