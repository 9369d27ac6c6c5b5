package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/fedgraph/internal/eventbus"
	events "github.com/hanpama/fedgraph/internal/events"
	reqid "github.com/hanpama/fedgraph/internal/reqid"

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
)

const instrumentationName = "github.com/hanpama/fedgraph"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(tp.Tracer(instrumentationName))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register subscribes span handlers for HTTP and composition events on the
// global bus.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer           trace.Tracer
	httpSpans        sync.Map // *reqid.Scope -> trace.Span
	compositionSpans sync.Map // *reqid.Scope -> trace.Span
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			scope, _ := reqid.ScopeFromContext(ctx)
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				semconv.HTTPRouteKey.String(e.Route),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("fedgraph.request_id", rid),
			)
			s.httpSpans.Store(scope, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			scope, _ := reqid.ScopeFromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(scope)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompositionStart) {
			scope, _ := reqid.ScopeFromContext(ctx)
			parent := ctx
			if v, ok := s.httpSpans.Load(scope); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "fedgraph.compose")
			span.SetAttributes(
				attribute.StringSlice("fedgraph.subgraphs", e.Subgraphs),
				attribute.Int("fedgraph.subgraph_count", len(e.Subgraphs)),
			)
			s.compositionSpans.Store(scope, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompositionFinish) {
			scope, _ := reqid.ScopeFromContext(ctx)
			v, ok := s.compositionSpans.LoadAndDelete(scope)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("fedgraph.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, "unresolvable fields")
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
