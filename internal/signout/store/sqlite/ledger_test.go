package sqlite_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/sqlite"
)

// ── Header ───────────────────────────────────────────────────────────────────

func TestLedger_HeaderRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	l := sqlite.NewLedger(conn, newTestWriter(t, conn), "logs")
	ctx := context.Background()

	h, err := l.ReadHeader(ctx)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(h) != 0 {
		t.Fatalf("expected empty header on new ledger, got %v", h)
	}

	if err := l.ReplaceHeader(ctx, []string{"id", "name"}); err != nil {
		t.Fatalf("ReplaceHeader: %v", err)
	}
	if err := l.ReplaceHeader(ctx, []string{"id", "name", "status"}); err != nil {
		t.Fatalf("ReplaceHeader again: %v", err)
	}
	h, _ = l.ReadHeader(ctx)
	if strings.Join(h, ",") != "id,name,status" {
		t.Errorf("expected id,name,status, got %v", h)
	}
}

// ── Rows ─────────────────────────────────────────────────────────────────────

func TestLedger_AppendAndRead(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ctx := context.Background()

	logs := sqlite.NewLedger(conn, w, "logs")
	vans := sqlite.NewLedger(conn, w, "vans")
	_ = logs.ReplaceHeader(ctx, []string{"id", "name", "status"})
	_ = vans.ReplaceHeader(ctx, []string{"id", "van"})

	if err := logs.AppendRow(ctx, store.Row{"id": "1", "name": "Sam", "status": "OUT", "bogus": "x"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := logs.AppendRow(ctx, store.Row{"id": "2", "NAME": "Alex"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := vans.AppendRow(ctx, store.Row{"id": "1", "van": "Van 1"}); err != nil {
		t.Fatalf("AppendRow vans: %v", err)
	}

	rows, err := logs.ReadAllRows(ctx)
	if err != nil {
		t.Fatalf("ReadAllRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows in logs, got %d", len(rows))
	}
	if rows[0]["name"] != "Sam" || rows[1]["name"] != "Alex" {
		t.Errorf("expected rows in append order, got %v", rows)
	}
	if _, ok := rows[0]["bogus"]; ok {
		t.Error("expected column outside header to be dropped")
	}
	if rows[1]["status"] != "" {
		t.Errorf("expected missing cell to read empty, got %q", rows[1]["status"])
	}

	vrows, _ := vans.ReadAllRows(ctx)
	if len(vrows) != 1 {
		t.Errorf("expected ledgers isolated, vans has %d rows", len(vrows))
	}
}

func TestLedger_ClearAndRewrite(t *testing.T) {
	conn := openTestDB(t)
	l := sqlite.NewLedger(conn, newTestWriter(t, conn), "logs")
	ctx := context.Background()

	_ = l.ReplaceHeader(ctx, []string{"id", "name"})
	for _, n := range []string{"A", "B", "C"} {
		_ = l.AppendRow(ctx, store.Row{"name": n})
	}

	if err := l.ClearAndRewrite(ctx, []store.Row{{"name": "B"}}); err != nil {
		t.Fatalf("ClearAndRewrite: %v", err)
	}
	rows, _ := l.ReadAllRows(ctx)
	if len(rows) != 1 || rows[0]["name"] != "B" {
		t.Errorf("expected only B, got %v", rows)
	}
	h, _ := l.ReadHeader(ctx)
	if len(h) != 2 {
		t.Errorf("expected header kept, got %v", h)
	}
}

// ── Coordinator over SQLite ──────────────────────────────────────────────────

func TestLedger_WithCoordinator(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ctx := context.Background()

	staff := sqlite.NewStaffStore(conn, w)
	if err := staff.UpsertStaff(ctx, credential.Record{Name: "Sam", Code: "1234", Active: true}); err != nil {
		t.Fatalf("UpsertStaff: %v", err)
	}

	board := service.VehicleBoard(sqlite.NewLedger(conn, w, ledger.Vehicles.Ledger), []string{"Van 1", "Van 2"}, nil, false)
	c := service.NewCoordinator(board, credential.NewDirectory(staff, time.Minute), service.Options{})

	ev, err := c.Propose(ctx, service.Intent{Actor: "Sam", Code: "1234", Action: ledger.ActionCheckout})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if ev.Subject != "Van 1" {
		t.Errorf("expected Van 1, got %q", ev.Subject)
	}
	if _, err := c.Propose(ctx, service.Intent{Actor: "Sam", Code: "1234", Action: ledger.ActionCheckin}); err != nil {
		t.Fatalf("checkin: %v", err)
	}

	hist, err := c.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 events, got %d", len(hist))
	}
	if hist[0].Seq != 2 || hist[0].Action != ledger.ActionCheckin {
		t.Errorf("expected newest first, got seq=%d action=%s", hist[0].Seq, hist[0].Action)
	}
}
