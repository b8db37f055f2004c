// Package history records sent shopping lists and decides whether a new
// submission amends the most recent record or starts a new one.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/cache"
	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/tabular"
)

// Table is the name of the history table.
const Table = "Shopping_History"

// Column names.
const (
	ColTimestamp    = "Timestamp"
	ColDate         = "Date"
	ColTotalItems   = "Total_Items"
	ColUniqueItems  = "Unique_Items"
	ColItemsJSON    = "Items_JSON"
	ColItemsDisplay = "Items_Display"
)

// Header is the fixed header of the history table.
var Header = []string{ColTimestamp, ColDate, ColTotalItems, ColUniqueItems, ColItemsJSON, ColItemsDisplay}

// Defaults.
const (
	DefaultEditWindow = 60 * time.Minute
	DefaultLimit      = 10

	// UnknownMinutesAgo is reported for records whose age cannot be determined.
	UnknownMinutesAgo = 999

	// DisplayDateLayout formats the human readable Date column.
	DisplayDateLayout = "January 02, 2006 at 03:04 PM"
)

// naiveLayouts are accepted for timestamps written without a zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Outcome tells whether a submission created or amended a record.
type Outcome string

// Outcomes.
const (
	Created Outcome = "created"
	Amended Outcome = "amended"
)

// Result is returned by AppendOrAmend.
type Result struct {
	Outcome Outcome
	// Previous is the payload of the amended record before it was overwritten.
	// It is nil when a record was created.
	Previous []model.PayloadItem
	Record   model.HistoryRecord
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(r *Repository) {
		r.clock = clock
	}
}

// WithEditWindow sets how long after creation a record may be amended.
func WithEditWindow(window time.Duration) Option {
	return func(r *Repository) {
		if window > 0 {
			r.editWindow = window
		}
	}
}

// Repository reads and writes the history table.
type Repository struct {
	store      tabular.Store
	cache      *cache.Cache
	logger     *zap.Logger
	clock      Clock
	editWindow time.Duration
}

// New creates a history repository.
func New(store tabular.Store, c *cache.Cache, logger *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		cache:      c,
		logger:     logger,
		clock:      systemClock{},
		editWindow: DefaultEditWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EditWindow returns the configured edit window.
func (r *Repository) EditWindow() time.Duration {
	return r.editWindow
}

// EnsureTable creates the history table when it does not exist.
func (r *Repository) EnsureTable(ctx context.Context) error {
	created, err := r.store.CreateTableIfAbsent(ctx, Table, Header)
	if err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	if created {
		r.logger.Info("history table created", zap.String("table", Table))
	}
	return nil
}

// AppendOrAmend stores a submitted list. Without amend a new record is always
// appended. With amend the most recent record is overwritten in place when it
// is younger than the edit window; in every other case a new record is
// appended instead.
func (r *Repository) AppendOrAmend(ctx context.Context, items []model.ListItem, amend bool) (Result, error) {
	now := r.clock.Now()
	record, row, err := newRecord(items, now)
	if err != nil {
		return Result{}, err
	}

	if amend {
		rowNum, previous, ok, err := r.amendable(ctx, now)
		if err != nil {
			return Result{}, err
		}
		if ok {
			if err := r.store.UpdateRange(ctx, Table, rowNum, 1, [][]string{row}); err != nil {
				return Result{}, fmt.Errorf("amend %s row %d: %w", Table, rowNum, err)
			}
			r.cache.Invalidate(ctx, cache.KeyHistory)

			r.logger.Info("history record amended",
				zap.Int("row", rowNum),
				zap.Int("total_items", record.TotalItems),
			)
			return Result{Outcome: Amended, Previous: previous, Record: record}, nil
		}
	}

	if err := r.store.AppendRow(ctx, Table, row); err != nil {
		return Result{}, fmt.Errorf("append %s: %w", Table, err)
	}
	r.cache.Invalidate(ctx, cache.KeyHistory)

	r.logger.Info("history record created",
		zap.Int("total_items", record.TotalItems),
		zap.Int("unique_items", record.UniqueItems),
	)
	return Result{Outcome: Created, Record: record}, nil
}

// amendable reads the table uncached and reports whether its last record may
// be amended at now, returning that record's row number and payload.
func (r *Repository) amendable(ctx context.Context, now time.Time) (int, []model.PayloadItem, bool, error) {
	rows, err := r.store.Rows(ctx, Table)
	if err != nil {
		return 0, nil, false, fmt.Errorf("read %s: %w", Table, err)
	}
	if len(rows) < 2 {
		return 0, nil, false, nil
	}

	header := rows[0]
	last := rows[len(rows)-1]

	editable, minutes := Editability(tabular.Cell(last, column(header, ColTimestamp, 1)), now, r.editWindow)
	if !editable {
		r.logger.Debug("latest history record is not editable", zap.Int("minutes_ago", minutes))
		return 0, nil, false, nil
	}

	previous, _ := model.DecodePayload(tabular.Cell(last, column(header, ColItemsJSON, 5)))
	return len(rows), previous, true, nil
}

// ListRecent returns up to limit records, most recent first. A limit of zero
// or less uses DefaultLimit. Store failures are logged and yield an empty list.
func (r *Repository) ListRecent(ctx context.Context, limit int) []model.HistoryRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}

	all, err := cache.Fetch(ctx, r.cache, cache.KeyHistory, r.readAll)
	if err != nil {
		r.logger.Error("failed to read history", zap.Error(err))
		return []model.HistoryRecord{}
	}

	now := r.clock.Now()
	out := make([]model.HistoryRecord, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		rec := all[i]
		rec.Items = slices.Clone(rec.Items)
		rec.IsEditable, rec.MinutesAgo = Editability(rec.Timestamp, now, r.editWindow)
		out = append(out, rec)
	}
	return out
}

func (r *Repository) readAll(ctx context.Context) ([]model.HistoryRecord, error) {
	_, records, err := tabular.Records(ctx, r.store, Table)
	if err != nil {
		return nil, err
	}

	out := make([]model.HistoryRecord, 0, len(records))
	for _, rec := range records {
		items, ok := model.DecodePayload(rec[ColItemsJSON])
		if !ok && strings.TrimSpace(rec[ColItemsJSON]) != "" {
			r.logger.Warn("malformed history payload", zap.String("timestamp", rec[ColTimestamp]))
		}
		out = append(out, model.HistoryRecord{
			Timestamp:    rec[ColTimestamp],
			DisplayDate:  rec[ColDate],
			TotalItems:   model.ParseCount(rec[ColTotalItems]),
			UniqueItems:  model.ParseCount(rec[ColUniqueItems]),
			Items:        items,
			ItemsDisplay: rec[ColItemsDisplay],
		})
	}
	return out, nil
}

// ParseTimestamp parses a stored timestamp. Values with a zone offset are
// read as-is; values without one are read in local time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// Editability reports whether a record written at timestamp may still be
// amended at now, and how many whole minutes ago it was written. Missing or
// unparsable timestamps are never editable and report UnknownMinutesAgo.
func Editability(timestamp string, now time.Time, window time.Duration) (bool, int) {
	t, err := ParseTimestamp(timestamp)
	if err != nil {
		return false, UnknownMinutesAgo
	}

	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed < window, int(elapsed / time.Minute)
}

func newRecord(items []model.ListItem, now time.Time) (model.HistoryRecord, []string, error) {
	payload := model.PayloadFromList(items)
	encoded, err := model.EncodePayload(payload)
	if err != nil {
		return model.HistoryRecord{}, nil, fmt.Errorf("encode history payload: %w", err)
	}

	total := 0
	for _, p := range payload {
		total += p.Quantity
	}

	record := model.HistoryRecord{
		Timestamp:    now.UTC().Format(time.RFC3339),
		DisplayDate:  now.Format(DisplayDateLayout),
		TotalItems:   total,
		UniqueItems:  len(payload),
		Items:        payload,
		ItemsDisplay: model.ItemsDisplay(payload),
		IsEditable:   true,
	}

	row := []string{
		record.Timestamp,
		record.DisplayDate,
		strconv.Itoa(record.TotalItems),
		strconv.Itoa(record.UniqueItems),
		encoded,
		record.ItemsDisplay,
	}
	return record, row, nil
}

func column(header []string, name string, fallback int) int {
	if col := tabular.ColumnIndex(header, name); col > 0 {
		return col
	}
	return fallback
}
