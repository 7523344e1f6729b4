package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/ethanesterson-creator/SignOut/internal/db"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// StaffStore is the roster kept in the staff table.
type StaffStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var (
	_ store.RosterStore  = (*StaffStore)(nil)
	_ store.RosterWriter = (*StaffStore)(nil)
)

func NewStaffStore(db *sql.DB, writer *dbpkg.Worker) *StaffStore {
	return &StaffStore{db: db, writer: writer}
}

func (s *StaffStore) ReadAll(ctx context.Context) ([]credential.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, code, active FROM staff
ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("staff query: %w", err)
	}
	defer rows.Close()

	var out []credential.Record
	for rows.Next() {
		var rec credential.Record
		var active int
		if err := rows.Scan(&rec.Name, &rec.Code, &active); err != nil {
			return nil, fmt.Errorf("staff scan: %w", err)
		}
		rec.Active = active == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staff iterate: %w", err)
	}
	return out, nil
}

// UpsertStaff stores the code normalized so the table never holds the
// "1234.0" spellings that spreadsheets produce.
func (s *StaffStore) UpsertStaff(ctx context.Context, rec credential.Record) error {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return fmt.Errorf("staff name is required")
	}
	code := credential.Normalize(rec.Code)
	if code == "" {
		return fmt.Errorf("staff code for %s has no digits", name)
	}
	active := 0
	if rec.Active {
		active = 1
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO staff(name, code, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  code          = excluded.code,
  active        = excluded.active,
  updated_at_ms = excluded.updated_at_ms;
`, name, code, active, ms, ms); err != nil {
			return fmt.Errorf("UpsertStaff: %w", err)
		}
		return nil
	})
}
