// Package tracing 提供基于 OpenTelemetry 的链路追踪初始化与 Span 辅助函数.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyfcoding/randforest/config"
)

const tracerName = "github.com/wyfcoding/randforest"

// InitTracer 按配置安装全局 TracerProvider，返回的 shutdown 负责刷新并关闭导出器.
//
// 未启用时返回空操作的 shutdown，Span 由全局的空实现吸收。
func InitTracer(ctx context.Context, cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}
	return Install(ctx, cfg, sdktrace.WithBatcher(exporter))
}

// Install 使用给定的导出选项安装 TracerProvider。测试中可传入同步导出器。
func Install(ctx context.Context, cfg config.TracingConfig, exporters ...sdktrace.TracerProviderOption) (func(context.Context) error, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "randforest"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			attribute.String("exporter", "otlp"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ratio := cfg.SamplerRatio
	if ratio == 0 {
		ratio = 1
	}
	opts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, exporters...)
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	slog.Info("tracer provider initialized", "service", name, "endpoint", cfg.OTLPEndpoint, "ratio", ratio)
	return tp.Shutdown, nil
}

// StartSpan 创建并开始一个新的 Span，调用者负责 End.
//
//nolint:spancheck // 由调用方管理生命周期.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetError 记录错误并把 Span 状态标记为 codes.Error。err 为 nil 时不做任何事.
func SetError(span trace.Span, err error, msg string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// TraceID 返回当前链路的追踪 ID，没有时返回空串.
func TraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return ""
}
