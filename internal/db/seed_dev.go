package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

type SeedDevOptions struct {
	// Staff are inserted unless a record with the same name exists.
	Staff []credential.Record
}

// DevStaff is the roster a fresh dev database starts with.
var DevStaff = []credential.Record{
	{Name: "Dev Counselor", Code: "1111", Active: true},
	{Name: "Dev Driver", Code: "2222", Active: true},
}

// SeedDev makes a dev database usable at the kiosk right away.  Existing
// staff are never overwritten.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	staff := opt.Staff
	if len(staff) == 0 {
		staff = DevStaff
	}
	now := time.Now().UTC().UnixMilli()

	for _, rec := range staff {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO staff(name, code, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?);`, name, rec.Code, boolToInt(rec.Active), now, now); err != nil {
			return fmt.Errorf("seed staff %s: %w", name, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
