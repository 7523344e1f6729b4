package service

import (
	"context"
	"slices"

	"github.com/ethanesterson-creator/SignOut/internal/events"
	"github.com/ethanesterson-creator/SignOut/internal/signout/allocation"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/status"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

const viewKey = "engine"

// PoolEntry is one pool member's derived state.
type PoolEntry struct {
	ID     string
	Status ledger.Status
	// Last is the event that decided Status; nil when the member has no
	// history.
	Last *ledger.Event
}

// Snapshot is what a kiosk screen shows for one board.
type Snapshot struct {
	Board string
	// Out lists every subject currently OUT, newest first.
	Out []ledger.Event
	// Pool is empty for boards without a pool.
	Pool          []PoolEntry
	NextAvailable string
	HasAvailable  bool
}

// View returns the board's status engine, served from cache for up to the
// view TTL.  On a read failure the error is a *StoreError and the engine is
// nil: callers must show the state as unknown.
func (c *Coordinator) View(ctx context.Context) (*status.Engine, error) {
	engine, err := c.views.GetOrRefresh(ctx, viewKey, c.viewTTL, func(ctx context.Context) (*status.Engine, error) {
		history, err := c.reader.ReadAll(ctx, c.board.Ledger)
		if err != nil {
			return nil, err
		}
		engine := status.New(history)
		for _, ev := range engine.Unrecognized() {
			c.logger.WarnContext(ctx, "unrecognized status treated as IN",
				"subject", ev.Subject, "status", ev.RawStatus, "id", ledger.Cell(ev.Row, ledger.ColumnID))
		}
		return engine, nil
	})
	if err != nil {
		return nil, &StoreError{Op: "read ledger " + c.board.Ledger.Name(), Err: err}
	}
	return engine, nil
}

func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	engine, err := c.View(ctx)
	if err != nil {
		return Snapshot{Board: c.board.Name}, err
	}
	snap := Snapshot{Board: c.board.Name, Out: engine.CurrentOut()}
	if c.board.Pooled() {
		statuses := engine.StatusMap(c.board.Pool)
		for _, id := range c.board.Pool {
			entry := PoolEntry{ID: id, Status: statuses[id]}
			if last, ok := engine.LastEvent(id); ok {
				entry.Last = &last
			}
			snap.Pool = append(snap.Pool, entry)
		}
		snap.NextAvailable, snap.HasAvailable = allocation.NextAvailable(c.board.Pool, statuses)
	}
	return snap, nil
}

// Status is the derived status of subject from the cached view.
func (c *Coordinator) Status(ctx context.Context, subject string) (ledger.Status, error) {
	engine, err := c.View(ctx)
	if err != nil {
		return "", err
	}
	return engine.Status(subject), nil
}

// History reads the whole ledger fresh and returns it newest first.  Rows
// without a usable timestamp come last, latest appended first.
func (c *Coordinator) History(ctx context.Context) ([]ledger.Event, error) {
	history, err := c.reader.ReadAll(ctx, c.board.Ledger)
	if err != nil {
		return nil, &StoreError{Op: "read ledger " + c.board.Ledger.Name(), Err: err}
	}
	slices.Reverse(history)
	slices.SortStableFunc(history, func(a, b ledger.Event) int {
		if a.TimeKnown != b.TimeKnown {
			if a.TimeKnown {
				return -1
			}
			return 1
		}
		return -status.Compare(a, b)
	})
	return history, nil
}

// Purge removes rows from the ledger and reports how many were dropped.
// With all set every row goes; otherwise rows whose id is in ids go.  The
// header is kept either way.
func (c *Coordinator) Purge(ctx context.Context, all bool, ids []int64) (int, error) {
	if !all && len(ids) == 0 {
		return 0, &ValidationError{Field: "ids", Message: "give ids or all"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.board.Ledger.ReadAllRows(ctx)
	if err != nil {
		return 0, &StoreError{Op: "read ledger " + c.board.Ledger.Name(), Err: err}
	}

	var keep []store.Row
	if !all {
		drop := make(map[int64]bool, len(ids))
		for _, id := range ids {
			drop[id] = true
		}
		for _, row := range rows {
			if seq, ok := ledger.ParseSeq(ledger.Cell(row, ledger.ColumnID)); ok && drop[seq] {
				continue
			}
			keep = append(keep, row)
		}
	}
	removed := len(rows) - len(keep)
	if removed == 0 {
		return 0, nil
	}

	if err := c.board.Ledger.ClearAndRewrite(ctx, keep); err != nil {
		return 0, &StoreError{Op: "rewrite " + c.board.Ledger.Name(), Err: err}
	}
	c.views.InvalidateAll()
	c.logger.WarnContext(ctx, "ledger purged", "all", all, "removed", removed)
	c.publish(ctx, events.Topic(c.board.Name, events.TopicPurged), events.Purged{Board: c.board.Name, All: all, Removed: removed})
	return removed, nil
}
