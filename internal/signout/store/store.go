package store

import (
	"context"
	"strings"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

// Row is one ledger row keyed by column name.  Values are kept as the raw
// text the store holds; coercion happens in the ledger reader.
type Row map[string]string

// Ledger is a spreadsheet-like append-only row store.  Implementations give
// no cross-call transactional guarantees: a caller that reads, decides and
// then appends can race with another writer.
type Ledger interface {
	// Name identifies the ledger (e.g. "logs", "vans").
	Name() string

	ReadAllRows(ctx context.Context) ([]Row, error)
	ReadHeader(ctx context.Context) ([]string, error)

	// AppendRow aligns row to the live header; cells for columns that are
	// not in the header are dropped.
	AppendRow(ctx context.Context, row Row) error
	ReplaceHeader(ctx context.Context, header []string) error

	// ClearAndRewrite atomically replaces every row while keeping the
	// header.  Admin purge only.
	ClearAndRewrite(ctx context.Context, rows []Row) error
}

// RosterStore is the staff roster collaborator.  Records carry the code as
// stored; normalization is the credential gate's job.
type RosterStore interface {
	ReadAll(ctx context.Context) ([]credential.Record, error)
}

// RosterWriter is implemented by roster stores that can be edited in place
// (the database-backed ones).  File rosters are edited by hand.
type RosterWriter interface {
	UpsertStaff(ctx context.Context, rec credential.Record) error
}

// Align projects row onto header, dropping unknown columns and filling
// missing ones with "".  Header names match row keys ignoring surrounding
// space and case, and the output uses the header's spelling.
func Align(header []string, row Row) Row {
	byKey := make(map[string]string, len(row))
	for k, v := range row {
		byKey[strings.ToLower(strings.TrimSpace(k))] = v
	}
	out := make(Row, len(header))
	for _, col := range header {
		if v, ok := row[col]; ok {
			out[col] = v
			continue
		}
		out[col] = byKey[strings.ToLower(strings.TrimSpace(col))]
	}
	return out
}
