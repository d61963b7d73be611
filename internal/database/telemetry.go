package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/rial-arbitrage-go/internal/database"

// TracedPool wraps a DatabasePool and records a span per statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedPool wraps pool. A nil provider uses the global one.
func NewTracedPool(pool DatabasePool, provider trace.TracerProvider) *TracedPool {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &TracedPool{pool: pool, tracer: provider.Tracer(tracerName)}
}

func (db *TracedPool) start(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	ctx, span := db.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("db.system", "postgresql"))
	if op := operation(sql); op != "" {
		span.SetAttributes(attribute.String("db.operation", op))
	}
	return ctx, span
}

// Query executes a query that returns rows.
func (db *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "db.query", sql)
	defer span.End()

	rows, err := db.pool.Query(ctx, sql, args...)
	RecordDatabaseError(span, err)
	return rows, err
}

// QueryRow executes a query that returns at most one row. Scan errors are
// not visible here.
func (db *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "db.query_row", sql)
	defer span.End()
	return db.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a statement without returning rows.
func (db *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "db.exec", sql)
	defer span.End()

	tag, err := db.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	RecordDatabaseError(span, err)
	return tag, err
}

// Begin starts a transaction whose statements are traced too.
func (db *TracedPool) Begin(ctx context.Context) (pgx.Tx, error) {
	_, span := db.start(ctx, "db.begin", "")
	defer span.End()

	tx, err := db.pool.Begin(ctx)
	RecordDatabaseError(span, err)
	if err != nil {
		return nil, err
	}
	return &TracedTx{Tx: tx, tracer: db.tracer}, nil
}

// TracedTx records spans for the statements of one transaction. Methods it
// does not override go straight to the wrapped Tx.
type TracedTx struct {
	pgx.Tx
	tracer trace.Tracer
}

// Exec executes a statement within the transaction.
func (tx *TracedTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := tx.tracer.Start(ctx, "db.tx.exec", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	if op := operation(sql); op != "" {
		span.SetAttributes(attribute.String("db.operation", op))
	}

	tag, err := tx.Tx.Exec(ctx, sql, args...)
	RecordDatabaseError(span, err)
	return tag, err
}

// Commit commits the transaction.
func (tx *TracedTx) Commit(ctx context.Context) error {
	ctx, span := tx.tracer.Start(ctx, "db.tx.commit")
	defer span.End()

	err := tx.Tx.Commit(ctx)
	RecordDatabaseError(span, err)
	return err
}

// Rollback rolls back the transaction.
func (tx *TracedTx) Rollback(ctx context.Context) error {
	ctx, span := tx.tracer.Start(ctx, "db.tx.rollback")
	defer span.End()
	return tx.Tx.Rollback(ctx)
}

// RecordDatabaseError marks span as failed when err is set.
func RecordDatabaseError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// operation returns the leading SQL keyword, upper-cased.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
