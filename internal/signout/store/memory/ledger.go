package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// Ledger is an in-memory store.Ledger.  It is intended for use in tests
// and dev environments.
type Ledger struct {
	name string

	mu     sync.Mutex
	header []string
	rows   []store.Row

	// Failure injection.  Tests only.
	ReadErr   error
	AppendErr error
}

// NewLedger returns a ledger with the given header and no rows.  A nil
// header leaves the ledger uninitialized.
func NewLedger(name string, header []string) *Ledger {
	return &Ledger{name: name, header: slices.Clone(header)}
}

func (l *Ledger) Name() string { return l.name }

func (l *Ledger) ReadAllRows(_ context.Context) ([]store.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ReadErr != nil {
		return nil, l.ReadErr
	}
	out := make([]store.Row, len(l.rows))
	for i, r := range l.rows {
		out[i] = maps.Clone(r)
	}
	return out, nil
}

func (l *Ledger) ReadHeader(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ReadErr != nil {
		return nil, l.ReadErr
	}
	return slices.Clone(l.header), nil
}

func (l *Ledger) AppendRow(_ context.Context, row store.Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.rows = append(l.rows, store.Align(l.header, row))
	return nil
}

// ReplaceHeader swaps the header only.  Stored rows keep every cell.
func (l *Ledger) ReplaceHeader(_ context.Context, header []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.header = slices.Clone(header)
	return nil
}

func (l *Ledger) ClearAndRewrite(_ context.Context, rows []store.Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.rows = l.rows[:0]
	for _, r := range rows {
		l.rows = append(l.rows, store.Align(l.header, r))
	}
	return nil
}

// Seed appends raw rows without aligning them, so tests can build ledgers
// with drifted or malformed cells.
func (l *Ledger) Seed(rows ...store.Row) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rows {
		l.rows = append(l.rows, maps.Clone(r))
	}
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
