package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey          = "telemetry:span"
	maxStatementSize = 500
)

// GORMTracingPlugin returns a GORM plugin that opens a span per statement.
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{}
}

type tracingPlugin struct{}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

// registrar is satisfied by gorm's callback handles.
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registrar
	}{
		{"SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"RAW", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}

	for _, h := range hooks {
		op := h.op
		name := strings.ToLower(op)
		if err := h.before.Register("telemetry:before_"+name, func(tx *gorm.DB) { startSpan(tx, op) }); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", name, err)
		}
		if err := h.after.Register("telemetry:after_"+name, endSpan); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", name, err)
		}
	}
	return nil
}

func startSpan(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	_, span := otel.Tracer("gorm").Start(ctx, "db."+strings.ToLower(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", db.Dialector.Name()),
			attribute.String("db.sql.table", table),
			attribute.String("db.operation", operation),
		),
	)
	db.InstanceSet(spanKey, span)
}

func endSpan(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementSize {
			sql = sql[:maxStatementSize] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
