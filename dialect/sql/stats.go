package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Event describes one executed statement.
type Event struct {
	Query    string
	Args     []any
	Duration time.Duration
	Err      error
	Rows     bool // The statement was sent as a query returning rows.
}

// Observer is notified after every statement a Conn executes.
type Observer interface {
	Observe(context.Context, Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(context.Context, Event)

// Observe calls f(ctx, e).
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// Observers fans an event out to several observers, in order.
type Observers []Observer

// Observe implements Observer.
func (os Observers) Observe(ctx context.Context, e Event) {
	for _, o := range os {
		o.Observe(ctx, e)
	}
}

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing queries.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of queries exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of query errors.
	Errors atomic.Int64

	mu            sync.RWMutex
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// SlowQueryHook is a function called when a slow query is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsOption configures the QueryStats.
type StatsOption func(*QueryStats)

// WithSlowThreshold sets the threshold for slow query detection.
// Queries taking longer than this duration will be counted as slow queries.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *QueryStats) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow queries.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *QueryStats) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow queries to the default logger.
// This is a convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewQueryStats returns statistics ready to be attached to a driver.
//
//	stats := sql.NewQueryStats(sql.WithSlowThreshold(200*time.Millisecond))
//	drv, err := sql.Open(dialect.Postgres, dsn, sql.WithObserver(stats))
//	...
//	fmt.Println(stats.Stats())
func NewQueryStats(opts ...StatsOption) *QueryStats {
	s := &QueryStats{slowThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SlowThreshold returns the current slow query threshold.
func (s *QueryStats) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (s *QueryStats) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// Observe implements Observer.
func (s *QueryStats) Observe(ctx context.Context, e Event) {
	if e.Rows {
		s.TotalQueries.Add(1)
	} else {
		s.TotalExecs.Add(1)
	}
	s.TotalDuration.Add(int64(e.Duration))
	if e.Err != nil {
		s.Errors.Add(1)
	}
	s.mu.RLock()
	threshold, hook := s.slowThreshold, s.slowHook
	s.mu.RUnlock()
	if threshold > 0 && e.Duration > threshold {
		s.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, e.Query, e.Args, e.Duration)
		}
	}
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

var (
	statementsDesc = prometheus.NewDesc(
		"pgdal_statements_total",
		"Number of statements executed, by kind",
		[]string{"kind"}, nil,
	)
	durationDesc = prometheus.NewDesc(
		"pgdal_statements_duration_seconds_total",
		"Total time spent executing statements",
		nil, nil,
	)
	slowDesc = prometheus.NewDesc(
		"pgdal_slow_statements_total",
		"Number of statements exceeding the slow threshold",
		nil, nil,
	)
	errorsDesc = prometheus.NewDesc(
		"pgdal_statement_errors_total",
		"Number of statements that failed",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (s *QueryStats) Describe(ch chan<- *prometheus.Desc) {
	ch <- statementsDesc
	ch <- durationDesc
	ch <- slowDesc
	ch <- errorsDesc
}

// Collect implements prometheus.Collector.
func (s *QueryStats) Collect(ch chan<- prometheus.Metric) {
	snap := s.Stats()
	ch <- prometheus.MustNewConstMetric(statementsDesc, prometheus.CounterValue, float64(snap.TotalQueries), "query")
	ch <- prometheus.MustNewConstMetric(statementsDesc, prometheus.CounterValue, float64(snap.TotalExecs), "exec")
	ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.CounterValue, snap.TotalDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(slowDesc, prometheus.CounterValue, float64(snap.SlowQueries))
	ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(snap.Errors))
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average query duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// LogObserver logs every statement at debug level, failed statements at
// error level and slow ones at warn level.
type LogObserver struct {
	Logger *slog.Logger // Defaults to slog.Default().
	Slow   time.Duration
}

// Observe implements Observer.
func (l LogObserver) Observe(ctx context.Context, e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"query", e.Query, "args", e.Args, "duration", e.Duration}
	switch {
	case e.Err != nil:
		logger.ErrorContext(ctx, "statement failed", append(attrs, "error", e.Err)...)
	case l.Slow > 0 && e.Duration > l.Slow:
		logger.WarnContext(ctx, "slow statement", attrs...)
	default:
		logger.DebugContext(ctx, "statement executed", attrs...)
	}
}

var (
	_ Observer             = (*QueryStats)(nil)
	_ Observer             = LogObserver{}
	_ prometheus.Collector = (*QueryStats)(nil)
)
