// Package tabular provides access to named tables of string cells whose
// first row is a header, the way a spreadsheet workbook is organised.
package tabular

import (
	"context"
	"errors"
	"fmt"
)

// Store errors.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrUnavailable   = errors.New("backing store unavailable")
	ErrRowOutOfRange = errors.New("row out of range")
	ErrInvalidRange  = errors.New("invalid cell range")
)

// Store defines the operations the repositories need from the backing store.
// Rows and columns are 1-based and row 1 is the header row.
type Store interface {
	// Rows returns every row of the table, header first.
	Rows(ctx context.Context, table string) ([][]string, error)

	// AppendRow adds a row after the last row of the table.
	AppendRow(ctx context.Context, table string, values []string) error

	// UpdateCell overwrites a single cell.
	UpdateCell(ctx context.Context, table string, row, col int, value string) error

	// UpdateRange overwrites a rectangle of cells whose top-left corner is (row, col).
	UpdateRange(ctx context.Context, table string, row, col int, values [][]string) error

	// CreateTableIfAbsent creates the table with the given header. It reports
	// whether the table was created.
	CreateTableIfAbsent(ctx context.Context, table string, header []string) (bool, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Record is a data row keyed by header name.
type Record map[string]string

// Records reads a table and returns its header and data rows as records.
// Cells missing from short rows read as empty strings.
func Records(ctx context.Context, s Store, table string) ([]string, []Record, error) {
	rows, err := s.Rows(ctx, table)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table, err)
	}

	if len(rows) == 0 {
		return nil, []Record{}, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			rec[name] = Cell(row, i+1)
		}
		records = append(records, rec)
	}

	return header, records, nil
}

// ColumnIndex returns the 1-based position of name in header, or 0.
func ColumnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i + 1
		}
	}
	return 0
}

// Cell returns the value at the 1-based column of row, or "" when the row is short.
func Cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

func validateCell(row, col int) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: row %d col %d", ErrInvalidRange, row, col)
	}
	return nil
}

// setCell writes value into row at the 1-based column, padding short rows.
func setCell(row []string, col int, value string) []string {
	for len(row) < col {
		row = append(row, "")
	}
	row[col-1] = value
	return row
}
