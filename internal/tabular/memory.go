package tabular

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore implements Store with in-memory tables.
type MemoryStore struct {
	mu          sync.RWMutex
	tables      map[string][][]string
	reads       map[string]int
	unavailable bool
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][][]string),
		reads:  make(map[string]int),
	}
}

// SetUnavailable makes every subsequent call fail with ErrUnavailable.
func (s *MemoryStore) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// ReadCount returns how many times Rows was called for table.
func (s *MemoryStore) ReadCount(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[table]
}

// Load replaces a table with a copy of rows. Intended for fixtures.
func (s *MemoryStore) Load(table string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = cloneRows(rows)
}

func (s *MemoryStore) check(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if s.unavailable {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return nil
}

// Rows returns a copy of every row of the table.
func (s *MemoryStore) Rows(ctx context.Context, table string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads[table]++

	if err := s.check(ctx, "rows"); err != nil {
		return nil, err
	}

	rows, exists := s.tables[table]
	if !exists {
		return nil, ErrTableNotFound
	}

	return cloneRows(rows), nil
}

// AppendRow adds a row after the last row of the table.
func (s *MemoryStore) AppendRow(ctx context.Context, table string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "append row"); err != nil {
		return err
	}

	rows, exists := s.tables[table]
	if !exists {
		return ErrTableNotFound
	}

	s.tables[table] = append(rows, slices.Clone(values))
	return nil
}

// UpdateCell overwrites a single cell.
func (s *MemoryStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return s.UpdateRange(ctx, table, row, col, [][]string{{value}})
}

// UpdateRange overwrites a rectangle of cells starting at (row, col).
func (s *MemoryStore) UpdateRange(ctx context.Context, table string, row, col int, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "update range"); err != nil {
		return err
	}

	if err := validateCell(row, col); err != nil {
		return err
	}

	rows, exists := s.tables[table]
	if !exists {
		return ErrTableNotFound
	}

	if row+len(values)-1 > len(rows) {
		return fmt.Errorf("%w: %s has %d rows", ErrRowOutOfRange, table, len(rows))
	}

	for i, line := range values {
		target := rows[row-1+i]
		for j, value := range line {
			target = setCell(target, col+j, value)
		}
		rows[row-1+i] = target
	}

	return nil
}

// CreateTableIfAbsent creates the table with a header row.
func (s *MemoryStore) CreateTableIfAbsent(ctx context.Context, table string, header []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "create table"); err != nil {
		return false, err
	}

	if _, exists := s.tables[table]; exists {
		return false, nil
	}

	s.tables[table] = [][]string{slices.Clone(header)}
	return true, nil
}

// Ping reports whether the store is reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx, "ping")
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}
