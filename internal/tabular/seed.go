package tabular

import (
	"context"
	"fmt"
)

// TableSpec describes a table to create when it does not exist yet.
type TableSpec struct {
	Name   string
	Header []string
	// Rows are appended only when the table is created.
	Rows [][]string
}

// Seed creates every missing table in specs and returns the names of the
// tables it created. Existing tables are left untouched.
func Seed(ctx context.Context, s Store, specs ...TableSpec) ([]string, error) {
	var created []string
	for _, table := range specs {
		ok, err := s.CreateTableIfAbsent(ctx, table.Name, table.Header)
		if err != nil {
			return created, fmt.Errorf("create %s: %w", table.Name, err)
		}
		if !ok {
			continue
		}

		for _, row := range table.Rows {
			if err := s.AppendRow(ctx, table.Name, row); err != nil {
				return created, fmt.Errorf("seed %s: %w", table.Name, err)
			}
		}
		created = append(created, table.Name)
	}
	return created, nil
}
