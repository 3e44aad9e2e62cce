package dialect

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
)

// AdapterStats holds adapter call statistics.
type AdapterStats struct {
	// TotalGets is the total number of Get calls.
	TotalGets atomic.Int64
	// TotalInserts is the total number of Insert calls.
	TotalInserts atomic.Int64
	// TotalDuration is the total time spent in the adapter.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowOps is the count of calls exceeding the slow threshold.
	SlowOps atomic.Int64
	// NotFound is the count of Get calls that found no row.
	NotFound atomic.Int64
	// Errors is the count of failed calls, not counting not-found.
	Errors atomic.Int64
}

// Snapshot returns a snapshot of the current statistics.
func (s *AdapterStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalGets:     s.TotalGets.Load(),
		TotalInserts:  s.TotalInserts.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowOps:       s.SlowOps.Load(),
		NotFound:      s.NotFound.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *AdapterStats) Reset() {
	s.TotalGets.Store(0)
	s.TotalInserts.Store(0)
	s.TotalDuration.Store(0)
	s.SlowOps.Store(0)
	s.NotFound.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of adapter statistics.
type StatsSnapshot struct {
	TotalGets     int64
	TotalInserts  int64
	TotalDuration time.Duration
	SlowOps       int64
	NotFound      int64
	Errors        int64
}

// AvgDuration returns the average call duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalGets + s.TotalInserts
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"gets=%d inserts=%d duration=%s avg=%s slow=%d notfound=%d errors=%d",
		s.TotalGets, s.TotalInserts, s.TotalDuration, s.AvgDuration(),
		s.SlowOps, s.NotFound, s.Errors,
	)
}

// Op describes one adapter call.
type Op struct {
	Name   string // "get" or "insert"
	Table  string
	Key    map[string]any
	Fields []string
}

// SlowOpHook is a function called when a slow adapter call is detected.
type SlowOpHook func(ctx context.Context, op Op, duration time.Duration)

// StatsAdapter wraps an Adapter with call statistics collection.
type StatsAdapter struct {
	Adapter
	stats         *AdapterStats
	slowThreshold time.Duration
	slowHook      SlowOpHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsAdapter.
type StatsOption func(*StatsAdapter)

// WithSlowThreshold sets the threshold for slow call detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsAdapter) {
		s.slowThreshold = d
	}
}

// WithSlowHook sets a callback function for slow calls.
func WithSlowHook(hook SlowOpHook) StatsOption {
	return func(s *StatsAdapter) {
		s.slowHook = hook
	}
}

// WithSlowLog logs slow calls at warn level.
// This is a convenience wrapper around WithSlowHook.
func WithSlowLog(log *zap.Logger) StatsOption {
	return WithSlowHook(func(_ context.Context, op Op, duration time.Duration) {
		log.Warn("slow storage call detected",
			zap.String("op", op.Name),
			zap.String("table", op.Table),
			zap.Strings("fields", op.Fields),
			zap.Duration("duration", duration),
		)
	})
}

// NewStats wraps an Adapter with statistics collection.
//
// Example:
//
//	a := dialect.NewStats(adapter,
//	    dialect.WithSlowThreshold(200*time.Millisecond),
//	    dialect.WithSlowLog(logger),
//	)
//	sess := session.New(s, a)
//
//	// Later, check statistics:
//	fmt.Println(a.Stats())
func NewStats(a Adapter, opts ...StatsOption) *StatsAdapter {
	s := &StatsAdapter{
		Adapter:       a,
		stats:         &AdapterStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdapterStats returns the underlying AdapterStats.
func (a *StatsAdapter) AdapterStats() *AdapterStats {
	return a.stats
}

// Stats returns a snapshot of the statistics.
func (a *StatsAdapter) Stats() StatsSnapshot {
	return a.stats.Snapshot()
}

// SlowThreshold returns the current slow call threshold.
func (a *StatsAdapter) SlowThreshold() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.slowThreshold
}

// SetSlowThreshold updates the slow call threshold.
func (a *StatsAdapter) SetSlowThreshold(threshold time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slowThreshold = threshold
}

// Get fetches a row and records statistics.
func (a *StatsAdapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	start := time.Now()
	row, err := a.Adapter.Get(ctx, table, key, fields)
	a.stats.TotalGets.Add(1)
	a.record(ctx, Op{Name: "get", Table: table, Key: key, Fields: fields}, start, err)
	return row, err
}

// Insert stores a row and records statistics.
func (a *StatsAdapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	start := time.Now()
	err := a.Adapter.Insert(ctx, table, values, keyFields)
	a.stats.TotalInserts.Add(1)
	a.record(ctx, Op{Name: "insert", Table: table, Fields: keyFields}, start, err)
	return err
}

func (a *StatsAdapter) record(ctx context.Context, op Op, start time.Time, err error) {
	duration := time.Since(start)
	a.stats.TotalDuration.Add(int64(duration))

	switch {
	case err == nil:
	case relmap.IsNotFound(err):
		a.stats.NotFound.Add(1)
	default:
		a.stats.Errors.Add(1)
	}

	a.mu.RLock()
	threshold := a.slowThreshold
	hook := a.slowHook
	a.mu.RUnlock()

	if duration > threshold {
		a.stats.SlowOps.Add(1)
		if hook != nil {
			hook(ctx, op, duration)
		}
	}
}

// DebugAdapter wraps an Adapter with debug logging.
type DebugAdapter struct {
	Adapter
	log *zap.Logger
}

// NewDebug wraps an Adapter with a debug log line per call.
//
// Example:
//
//	logger, _ := zap.NewDevelopment()
//	sess := session.New(s, dialect.NewDebug(adapter, logger))
func NewDebug(a Adapter, log *zap.Logger) *DebugAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &DebugAdapter{Adapter: a, log: log.Named("dialect")}
}

// Get fetches a row and logs it.
func (d *DebugAdapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	row, err := d.Adapter.Get(ctx, table, key, fields)
	d.log.Debug("get",
		zap.String("table", table),
		zap.Any("key", key),
		zap.Strings("fields", fields),
		zap.Bool("found", err == nil),
		zap.Error(err),
	)
	return row, err
}

// Insert stores a row and logs it.
func (d *DebugAdapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	err := d.Adapter.Insert(ctx, table, values, keyFields)
	d.log.Debug("insert",
		zap.String("table", table),
		zap.Any("values", values),
		zap.Strings("key_fields", keyFields),
		zap.Error(err),
	)
	return err
}

// Ensure interfaces are implemented.
var (
	_ Adapter = (*StatsAdapter)(nil)
	_ Adapter = (*DebugAdapter)(nil)
)
