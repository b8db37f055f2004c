package tabular

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/shoplist/internal/tabular/migrations"

	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements Store on top of a SQLite database. Each table is a
// row in sheets and each of its rows is a JSON array of cells in sheet_rows.
type SQLiteStore struct {
	db *sqlx.DB
}

type sheetRow struct {
	RowNum int    `db:"row_num"`
	Cells  string `db:"cells"`
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	var dsn string
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(ON)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", filepath.ToSlash(absPath))
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Rows returns every row of the table, header first.
func (s *SQLiteStore) Rows(ctx context.Context, table string) ([][]string, error) {
	if err := s.requireSheet(ctx, s.db, table); err != nil {
		return nil, err
	}

	var stored []sheetRow
	err := s.db.SelectContext(ctx, &stored,
		"SELECT row_num, cells FROM sheet_rows WHERE sheet = ? ORDER BY row_num", table)
	if err != nil {
		return nil, unavailable("select rows", err)
	}

	rows := make([][]string, 0, len(stored))
	for _, r := range stored {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table, r.RowNum, err)
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// AppendRow adds a row after the last row of the table.
func (s *SQLiteStore) AppendRow(ctx context.Context, table string, values []string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireSheet(ctx, tx, table); err != nil {
			return err
		}

		var last int
		if err := tx.GetContext(ctx, &last,
			"SELECT COALESCE(MAX(row_num), 0) FROM sheet_rows WHERE sheet = ?", table); err != nil {
			return unavailable("last row", err)
		}

		return insertRow(ctx, tx, table, last+1, values)
	})
}

// UpdateCell overwrites a single cell.
func (s *SQLiteStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return s.UpdateRange(ctx, table, row, col, [][]string{{value}})
}

// UpdateRange overwrites a rectangle of cells starting at (row, col).
func (s *SQLiteStore) UpdateRange(ctx context.Context, table string, row, col int, values [][]string) error {
	if err := validateCell(row, col); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireSheet(ctx, tx, table); err != nil {
			return err
		}

		for i, line := range values {
			rowNum := row + i

			var raw string
			err := tx.GetContext(ctx, &raw,
				"SELECT cells FROM sheet_rows WHERE sheet = ? AND row_num = ?", table, rowNum)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
			}
			if err != nil {
				return unavailable("select row", err)
			}

			cells, err := decodeCells(raw)
			if err != nil {
				return fmt.Errorf("decode %s row %d: %w", table, rowNum, err)
			}
			for j, value := range line {
				cells = setCell(cells, col+j, value)
			}

			encoded, err := json.Marshal(cells)
			if err != nil {
				return fmt.Errorf("encode %s row %d: %w", table, rowNum, err)
			}

			if _, err := tx.ExecContext(ctx,
				"UPDATE sheet_rows SET cells = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE sheet = ? AND row_num = ?",
				string(encoded), table, rowNum); err != nil {
				return unavailable("update row", err)
			}
		}

		return nil
	})
}

// CreateTableIfAbsent creates the table with a header row.
func (s *SQLiteStore) CreateTableIfAbsent(ctx context.Context, table string, header []string) (bool, error) {
	created := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := s.requireSheet(ctx, tx, table)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTableNotFound) {
			return err
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO sheets (name) VALUES (?)", table); err != nil {
			return unavailable("insert sheet", err)
		}
		if err := insertRow(ctx, tx, table, 1, header); err != nil {
			return err
		}

		created = true
		return nil
	})
	return created, err
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLiteStore) requireSheet(ctx context.Context, q sqlx.QueryerContext, table string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(1) FROM sheets WHERE name = ?", table); err != nil {
		return unavailable("lookup sheet", err)
	}
	if n == 0 {
		return ErrTableNotFound
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sqlx.Tx, table string, rowNum int, values []string) error {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode %s row %d: %w", table, rowNum, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sheet_rows (sheet, row_num, cells) VALUES (?, ?, ?)",
		table, rowNum, string(encoded)); err != nil {
		return unavailable("insert row", err)
	}
	return nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
