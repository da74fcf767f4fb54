// Package otel turns lifecycle events from the eventbus into OpenTelemetry
// spans: one "http.request" span per request and one "graphql.operation"
// child span per executed operation.
package otel

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	events "github.com/hanpama/graphqlview/internal/events"
	reqctx "github.com/hanpama/graphqlview/internal/reqctx"
)

const instrumentation = "github.com/hanpama/graphqlview"

// Setup configures an OTLP/gRPC exporter and attaches the span subscriber to
// the global bus. If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, errors.Wrapf(err, "otlp exporter %s", endpoint)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(tp)
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans on tp for events of the global bus.
func Subscribe(tp trace.TracerProvider) (unsubscribe func()) {
	s := &subscriber{tracer: tp.Tracer(instrumentation)}
	return s.register()
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // request id -> trace.Span
	gqlSpans  sync.Map // request id + "/" + index -> trace.Span
}

func operationKey(ctx context.Context, index int) string {
	rid, _ := reqctx.FromContext(ctx)
	return rid + "/" + strconv.Itoa(index)
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqctx.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("http.request_id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqctx.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				semconv.HTTPStatusCodeKey.Int(e.Status),
				attribute.String("graphql.handler", e.Kind),
				attribute.Bool("graphql.batch", e.Batch),
			)
			if e.Status >= 500 {
				span.SetStatus(codes.Error, strconv.Itoa(e.Status))
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqctx.FromContext(ctx)
			parent := ctx
			if v, ok := s.httpSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.Int("graphql.batch.index", e.Index),
			)
			s.gqlSpans.Store(operationKey(ctx, e.Index), span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			v, ok := s.gqlSpans.LoadAndDelete(operationKey(ctx, e.Index))
			if !ok {
				return
			}
			span := v.(trace.Span)
			if e.OperationType != "" {
				span.SetAttributes(attribute.String("graphql.operation.type", e.OperationType))
			}
			span.SetAttributes(
				attribute.Int("graphql.error_count", len(e.Errors)),
				attribute.Int("graphql.status", e.Status),
			)
			for _, err := range e.Errors {
				span.RecordError(err)
			}
			if e.Status != 200 {
				span.SetStatus(codes.Error, "graphql request error")
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
