package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

type StaffStore struct {
	db *sql.DB
}

var (
	_ store.RosterStore  = (*StaffStore)(nil)
	_ store.RosterWriter = (*StaffStore)(nil)
)

func (s *StaffStore) ReadAll(ctx context.Context) ([]credential.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, code, active FROM staff ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	var out []credential.Record
	for rows.Next() {
		var rec credential.Record
		if err := rows.Scan(&rec.Name, &rec.Code, &rec.Active); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return out, nil
}

func (s *StaffStore) UpsertStaff(ctx context.Context, rec credential.Record) error {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return fmt.Errorf("staff name is required")
	}
	code := credential.Normalize(rec.Code)
	if code == "" {
		return fmt.Errorf("staff code for %s has no digits", name)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (name, code, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET code = EXCLUDED.code, active = EXCLUDED.active, updated_at = now()`,
		name, code, rec.Active)
	if err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}
	return nil
}
