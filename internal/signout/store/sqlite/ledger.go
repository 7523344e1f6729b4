// Package sqlite stores ledgers and the staff roster in SQLite.  Reads go
// straight to the database; every write is a db.Worker transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/ethanesterson-creator/SignOut/internal/db"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Ledger struct {
	db     *sql.DB
	writer *dbpkg.Worker
	name   string
}

var _ store.Ledger = (*Ledger)(nil)

func NewLedger(db *sql.DB, writer *dbpkg.Worker, name string) *Ledger {
	return &Ledger{db: db, writer: writer, name: name}
}

func (l *Ledger) Name() string { return l.name }

func (l *Ledger) ReadHeader(ctx context.Context) ([]string, error) {
	return readHeader(ctx, l.db, l.name)
}

func (l *Ledger) ReadAllRows(ctx context.Context) ([]store.Row, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT cells_json FROM ledger_rows
WHERE ledger = ?
ORDER BY row_id;`, l.name)
	if err != nil {
		return nil, fmt.Errorf("ReadAllRows query: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ReadAllRows scan: %w", err)
		}
		var row store.Row
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("ReadAllRows decode: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadAllRows iterate: %w", err)
	}
	return out, nil
}

// AppendRow aligns row to the header as of the write transaction.
func (l *Ledger) AppendRow(ctx context.Context, row store.Row) error {
	return l.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		header, err := readHeader(ctx, tx, l.name)
		if err != nil {
			return err
		}
		return insertRow(ctx, tx, l.name, store.Align(header, row))
	})
}

func (l *Ledger) ReplaceHeader(ctx context.Context, header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("ReplaceHeader encode: %w", err)
	}
	ms := time.Now().UTC().UnixMilli()

	return l.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_headers(ledger, columns_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(ledger) DO UPDATE SET
  columns_json  = excluded.columns_json,
  updated_at_ms = excluded.updated_at_ms;
`, l.name, string(data), ms); err != nil {
			return fmt.Errorf("ReplaceHeader upsert: %w", err)
		}
		return nil
	})
}

// ClearAndRewrite replaces every row in one transaction; a failure leaves
// the old rows in place.
func (l *Ledger) ClearAndRewrite(ctx context.Context, rows []store.Row) error {
	return l.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		header, err := readHeader(ctx, tx, l.name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE ledger = ?;`, l.name); err != nil {
			return fmt.Errorf("ClearAndRewrite delete: %w", err)
		}
		for _, row := range rows {
			if err := insertRow(ctx, tx, l.name, store.Align(header, row)); err != nil {
				return err
			}
		}
		return nil
	})
}

func readHeader(ctx context.Context, q queryer, ledger string) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `
SELECT columns_json FROM ledger_headers WHERE ledger = ?;`, ledger).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReadHeader query: %w", err)
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, fmt.Errorf("ReadHeader decode: %w", err)
	}
	return header, nil
}

func insertRow(ctx context.Context, tx *sql.Tx, ledger string, row store.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("insert row encode: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_rows(ledger, cells_json, created_at_ms)
VALUES (?, ?, ?);`, ledger, string(data), time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}
