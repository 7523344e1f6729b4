package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

type Ledger struct {
	db   *sql.DB
	name string
}

var _ store.Ledger = (*Ledger)(nil)

func (l *Ledger) Name() string { return l.name }

func (l *Ledger) ReadHeader(ctx context.Context) ([]string, error) {
	return readHeader(ctx, l.db, l.name, "")
}

func (l *Ledger) ReadAllRows(ctx context.Context) ([]store.Row, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT cells FROM ledger_rows WHERE ledger = $1 ORDER BY row_id`, l.name)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var row store.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// AppendRow reads the header FOR SHARE so a concurrent ReplaceHeader
// cannot slip between alignment and insert.
func (l *Ledger) AppendRow(ctx context.Context, row store.Row) error {
	return withTx(ctx, l.db, func(tx *sql.Tx) error {
		header, err := readHeader(ctx, tx, l.name, " FOR SHARE")
		if err != nil {
			return err
		}
		return insertRow(ctx, tx, l.name, store.Align(header, row))
	})
}

func (l *Ledger) ReplaceHeader(ctx context.Context, header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO ledger_headers (ledger, columns, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ledger) DO UPDATE SET columns = EXCLUDED.columns, updated_at = now()`,
		l.name, string(data))
	if err != nil {
		return fmt.Errorf("replace header: %w", err)
	}
	return nil
}

func (l *Ledger) ClearAndRewrite(ctx context.Context, rows []store.Row) error {
	return withTx(ctx, l.db, func(tx *sql.Tx) error {
		header, err := readHeader(ctx, tx, l.name, " FOR UPDATE")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE ledger = $1`, l.name); err != nil {
			return fmt.Errorf("clear rows: %w", err)
		}
		for _, row := range rows {
			if err := insertRow(ctx, tx, l.name, store.Align(header, row)); err != nil {
				return err
			}
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readHeader(ctx context.Context, q queryer, ledger, lock string) ([]string, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT columns FROM ledger_headers WHERE ledger = $1`+lock, ledger).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header []string
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return header, nil
}

func insertRow(ctx context.Context, tx *sql.Tx, ledger string, row store.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_rows (ledger, cells) VALUES ($1, $2)`, ledger, string(data)); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}
