package pg

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"reviewprep/internal/platform/logger"
)

type startKey struct{}

type started struct {
	sql  string
	args []any
	at   time.Time
}

// Tracer logs statements through zerolog. Statements slower than Slow are
// logged at warn; every statement is logged at info when Verbose is set
type Tracer struct {
	Log     logger.Logger
	Slow    time.Duration
	Verbose bool

	now func() time.Time
}

// NewTracer returns a tracer tagged with component=pg
func NewTracer(root logger.Logger, slow time.Duration, verbose bool) *Tracer {
	return &Tracer{
		Log:     root.With().Str("component", "pg").Logger(),
		Slow:    slow,
		Verbose: verbose,
		now:     time.Now,
	}
}

// TraceQueryStart implements pgx.QueryTracer
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, startKey{}, started{sql: d.SQL, args: d.Args, at: t.now()})
}

// TraceQueryEnd implements pgx.QueryTracer
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	st, ok := ctx.Value(startKey{}).(started)
	if !ok {
		return
	}
	elapsed := t.now().Sub(st.at)
	slow := t.Slow > 0 && elapsed >= t.Slow
	if !slow && !t.Verbose {
		return
	}
	evt := t.Log.Info()
	if slow {
		evt = t.Log.Warn()
	}
	evt.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000).
		Bool("slow", slow).
		Str("sql", squash(st.sql)).
		Int("args", len(st.args)).
		Int64("rows", d.CommandTag.RowsAffected()).
		Err(d.Err).
		Msg("pg query")
}

// squash folds runs of whitespace so multi line statements log on one line
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
