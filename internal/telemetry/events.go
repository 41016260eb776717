package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const domainTracer = "commune"

// StartSpan opens a domain span such as "comment.create" under ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(domainTracer).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceFeed opens a span for one feed page.
func TraceFeed(ctx context.Context, kind string, limit, offset int) (context.Context, trace.Span) {
	return StartSpan(ctx, "feed.get",
		attribute.String("feed.kind", kind),
		attribute.Int("feed.limit", limit),
		attribute.Int("feed.offset", offset),
	)
}

// TraceComment opens a span for a comment mutation.
func TraceComment(ctx context.Context, operation, postID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "comment."+operation, attribute.String("post.id", postID))
}

// TraceSearch opens a span for a search request.
func TraceSearch(ctx context.Context, kind, backend string) (context.Context, trace.Span) {
	return StartSpan(ctx, "search."+kind, attribute.String("search.backend", backend))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
