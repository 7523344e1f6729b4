// Package export renders ledgers as CSV and ships periodic backups.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// WriteCSV writes header followed by every row aligned to it.  When header
// is empty the columns are the union of row keys, sorted.
func WriteCSV(w io.Writer, header []string, rows []store.Row) error {
	if len(header) == 0 {
		header = unionKeys(rows)
	}
	if len(header) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, row := range rows {
		aligned := store.Align(header, row)
		for i, col := range header {
			rec[i] = aligned[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Ledger streams l as CSV and reports how many rows were written.
func Ledger(ctx context.Context, l store.Ledger, w io.Writer) (int, error) {
	header, err := l.ReadHeader(ctx)
	if err != nil {
		return 0, fmt.Errorf("read header %s: %w", l.Name(), err)
	}
	rows, err := l.ReadAllRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read rows %s: %w", l.Name(), err)
	}
	if err := WriteCSV(w, header, rows); err != nil {
		return 0, fmt.Errorf("write csv %s: %w", l.Name(), err)
	}
	return len(rows), nil
}

func unionKeys(rows []store.Row) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}
