package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func attr(span sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestGORMTracingPlugin(t *testing.T) {
	recorder := withRecorder(t)

	db, err := database.OpenTest()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.Use(GORMTracingPlugin()))

	ctx := context.Background()
	user := &models.User{Email: "t@commune.dev", Username: "tracer", DisplayName: "T"}
	require.NoError(t, db.WithContext(ctx).Create(user).Error)

	var missing models.User
	err = db.WithContext(ctx).Where("id = ?", "nope").First(&missing).Error
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	insert := spans[0]
	assert.Equal(t, "db.insert", insert.Name())
	assert.Equal(t, "sqlite", attr(insert, "db.system").AsString())
	assert.Equal(t, "users", attr(insert, "db.sql.table").AsString())
	assert.Contains(t, attr(insert, "db.statement").AsString(), "INSERT INTO")

	// A missing row is not a span error.
	assert.Equal(t, "db.select", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestDomainSpans(t *testing.T) {
	recorder := withRecorder(t)
	ctx := context.Background()

	_, span := TraceFeed(ctx, "global", 20, 40)
	End(span, nil)
	_, span = TraceComment(ctx, "create", "p1")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "feed.get", spans[0].Name())
	assert.Equal(t, int64(40), attr(spans[0], "feed.offset").AsInt64())
	assert.Equal(t, "comment.create", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "commune-api"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
