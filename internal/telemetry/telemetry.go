// Package telemetry 提供 OpenTelemetry 初始化与取用入口。
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/VinayJayadev/GraphRAG-powered-ChatBot"

// Setup 安装进程全局 TracerProvider，返回关停函数。
// 未接导出器时 span 留在进程内，开销可以忽略。
func Setup() func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// Tracer 返回本项目的 tracer。
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
