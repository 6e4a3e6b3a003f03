package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryStats(t *testing.T) {
	var slow []string
	stats := NewQueryStats(
		WithSlowThreshold(50*time.Millisecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, 50*time.Millisecond, stats.SlowThreshold())

	ctx := context.Background()
	stats.Observe(ctx, Event{Query: "SELECT 1", Duration: 10 * time.Millisecond, Rows: true})
	stats.Observe(ctx, Event{Query: "UPDATE t", Duration: 60 * time.Millisecond})
	stats.Observe(ctx, Event{Query: "DELETE t", Duration: 30 * time.Millisecond, Err: errors.New("boom")})

	snap := stats.Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.SlowQueries)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, 100*time.Millisecond, snap.TotalDuration)
	assert.Equal(t, 100*time.Millisecond/3, snap.AvgQueryDuration())
	assert.Equal(t, []string{"UPDATE t"}, slow)
	assert.Contains(t, snap.String(), "queries=1 execs=2")

	stats.SetSlowThreshold(0)
	stats.Observe(ctx, Event{Query: "SELECT pg_sleep(1)", Duration: time.Second, Rows: true})
	assert.Equal(t, int64(1), stats.Stats().SlowQueries, "zero threshold disables slow detection")

	stats.Reset()
	assert.Equal(t, StatsSnapshot{}, stats.Stats())
	assert.Zero(t, stats.Stats().AvgQueryDuration())
}

func TestQueryStats_Collector(t *testing.T) {
	stats := NewQueryStats()
	ctx := context.Background()
	stats.Observe(ctx, Event{Query: "SELECT 1", Rows: true})
	stats.Observe(ctx, Event{Query: "SELECT 2", Rows: true})
	stats.Observe(ctx, Event{Query: "INSERT", Err: errors.New("dup")})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(stats))

	expected := `
# HELP pgdal_statement_errors_total Number of statements that failed
# TYPE pgdal_statement_errors_total counter
pgdal_statement_errors_total 1
# HELP pgdal_statements_total Number of statements executed, by kind
# TYPE pgdal_statements_total counter
pgdal_statements_total{kind="exec"} 1
pgdal_statements_total{kind="query"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "pgdal_statements_total", "pgdal_statement_errors_total")
	require.NoError(t, err)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := LogObserver{Logger: logger, Slow: time.Second}
	ctx := context.Background()

	o.Observe(ctx, Event{Query: "SELECT 1"})
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "statement executed")

	buf.Reset()
	o.Observe(ctx, Event{Query: "SELECT 1", Duration: 2 * time.Second})
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	o.Observe(ctx, Event{Query: "SELECT 1", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error=boom")
}
