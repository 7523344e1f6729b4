package service

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"slices"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/export"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// Boards looks coordinators up by board name.
type Boards map[string]*Coordinator

func NewBoards(coords ...*Coordinator) Boards {
	b := make(Boards, len(coords))
	for _, c := range coords {
		b[c.Board().Name] = c
	}
	return b
}

func (b Boards) Get(name string) (*Coordinator, error) {
	c, ok := b[name]
	if !ok {
		return nil, ErrUnknownBoard
	}
	return c, nil
}

// Names lists the boards alphabetically.
func (b Boards) Names() []string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Ledgers lists every board's ledger, in Names order.
func (b Boards) Ledgers() []store.Ledger {
	var out []store.Ledger
	for _, n := range b.Names() {
		out = append(out, b[n].Board().Ledger)
	}
	return out
}

// Admin guards the maintenance operations behind a static password.
type Admin struct {
	password string
	boards   Boards
	roster   *credential.Directory
	logger   *slog.Logger
}

func NewAdmin(password string, boards Boards, roster *credential.Directory, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Admin{password: password, boards: boards, roster: roster, logger: logger}
}

// Enabled reports whether an admin password is configured.
func (a *Admin) Enabled() bool { return a.password != "" }

// Check compares password in constant time.
func (a *Admin) Check(password string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return ErrAdminForbidden
	}
	return nil
}

// Export writes board's ledger to w as CSV.
func (a *Admin) Export(ctx context.Context, board string, w io.Writer) (int, error) {
	c, err := a.boards.Get(board)
	if err != nil {
		return 0, err
	}
	n, err := export.Ledger(ctx, c.Board().Ledger, w)
	if err != nil {
		return 0, &StoreError{Op: "export " + board, Err: err}
	}
	return n, nil
}

// Purge is Coordinator.Purge on the named board.
func (a *Admin) Purge(ctx context.Context, board string, all bool, ids []int64) (int, error) {
	c, err := a.boards.Get(board)
	if err != nil {
		return 0, err
	}
	return c.Purge(ctx, all, ids)
}

// RefreshRoster drops the cached roster and reloads it, returning the
// number of staff records.
func (a *Admin) RefreshRoster(ctx context.Context) (int, error) {
	a.roster.Invalidate()
	r, err := a.roster.Snapshot(ctx)
	if err != nil {
		return 0, &StoreError{Op: "read roster", Err: err}
	}
	a.logger.InfoContext(ctx, "roster refreshed", "staff", r.Len())
	return r.Len(), nil
}
