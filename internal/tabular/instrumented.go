package tabular

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoplist_store_operations_total",
			Help: "Total number of backing store operations",
		},
		[]string{"operation", "table", "result"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoplist_store_operation_duration_seconds",
			Help:    "Backing store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)
)

// instrumentedStore records Prometheus metrics around every Store call.
type instrumentedStore struct {
	next Store
}

// Instrument wraps s so every call is counted and timed.
func Instrument(s Store) Store {
	return &instrumentedStore{next: s}
}

func observe(op, table string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrTableNotFound):
		result = "not_found"
	case errors.Is(err, ErrUnavailable):
		result = "unavailable"
	default:
		result = "error"
	}

	storeOperationsTotal.WithLabelValues(op, table, result).Inc()
	storeOperationDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Rows(ctx context.Context, table string) (rows [][]string, err error) {
	defer func(start time.Time) { observe("rows", table, start, err) }(time.Now())
	return s.next.Rows(ctx, table)
}

func (s *instrumentedStore) AppendRow(ctx context.Context, table string, values []string) (err error) {
	defer func(start time.Time) { observe("append_row", table, start, err) }(time.Now())
	return s.next.AppendRow(ctx, table, values)
}

func (s *instrumentedStore) UpdateCell(ctx context.Context, table string, row, col int, value string) (err error) {
	defer func(start time.Time) { observe("update_cell", table, start, err) }(time.Now())
	return s.next.UpdateCell(ctx, table, row, col, value)
}

func (s *instrumentedStore) UpdateRange(ctx context.Context, table string, row, col int, values [][]string) (err error) {
	defer func(start time.Time) { observe("update_range", table, start, err) }(time.Now())
	return s.next.UpdateRange(ctx, table, row, col, values)
}

func (s *instrumentedStore) CreateTableIfAbsent(ctx context.Context, table string, header []string) (created bool, err error) {
	defer func(start time.Time) { observe("create_table", table, start, err) }(time.Now())
	return s.next.CreateTableIfAbsent(ctx, table, header)
}

func (s *instrumentedStore) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("ping", "", start, err) }(time.Now())
	return s.next.Ping(ctx)
}
