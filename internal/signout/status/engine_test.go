package status_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/status"
)

var base = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func ev(pos int, subject string, minute int, seq int64, st string) ledger.Event {
	e := ledger.Event{Subject: subject, RawStatus: st, Position: pos}
	if minute >= 0 {
		e.Timestamp, e.TimeKnown = base.Add(time.Duration(minute)*time.Minute), true
	}
	if seq > 0 {
		e.Seq, e.HasSeq = seq, true
	}
	if st == "OUT" {
		e.Action = ledger.ActionCheckout
	} else {
		e.Action = ledger.ActionCheckin
	}
	return e
}

func TestStatus_LastEventDecides(t *testing.T) {
	e := status.New([]ledger.Event{
		ev(0, "Sam", 0, 1, "OUT"),
		ev(1, "Sam", 5, 2, "IN"),
		ev(2, "Jo", 1, 3, "OUT"),
	})
	assert.Equal(t, ledger.StatusIn, e.Status("Sam"))
	assert.Equal(t, ledger.StatusOut, e.Status("Jo"))
	assert.Equal(t, ledger.StatusIn, e.Status("Nobody"))
	assert.Equal(t, []string{"Sam", "Jo"}, e.Subjects())
}

func TestStatus_OrderIsByTimeNotPosition(t *testing.T) {
	// A hand-sorted ledger: the later checkin was appended first.
	e := status.New([]ledger.Event{
		ev(0, "Sam", 10, 2, "IN"),
		ev(1, "Sam", 0, 1, "OUT"),
	})
	assert.Equal(t, ledger.StatusIn, e.Status("Sam"))
}

func TestStatus_TimestampTieBrokenBySeq(t *testing.T) {
	e := status.New([]ledger.Event{
		ev(0, "Sam", 0, 5, "OUT"),
		ev(1, "Sam", 0, 4, "IN"),
	})
	assert.Equal(t, ledger.StatusOut, e.Status("Sam"))

	// A missing id sorts below a present one.
	e = status.New([]ledger.Event{
		ev(0, "Jo", 0, 3, "OUT"),
		ev(1, "Jo", 0, 0, "IN"),
	})
	assert.Equal(t, ledger.StatusOut, e.Status("Jo"))
}

func TestStatus_UnknownTimestampsKeepLedgerOrderAfterKnown(t *testing.T) {
	e := status.New([]ledger.Event{
		ev(0, "Sam", -1, 0, "OUT"),
		ev(1, "Sam", 30, 1, "IN"),
		ev(2, "Sam", -1, 0, "IN"),
		ev(3, "Sam", -1, 0, "OUT"),
	})
	last, ok := e.LastEvent("Sam")
	require.True(t, ok)
	assert.Equal(t, 3, last.Position)
	assert.Equal(t, ledger.StatusOut, e.Status("Sam"))
}

func TestStatus_FailOpen(t *testing.T) {
	e := status.New([]ledger.Event{
		ev(0, "Van 1", 0, 1, "OUT"),
		ev(1, "Van 1", 1, 2, "ON LOAN"),
		ev(2, "Van 2", 0, 3, ""),
	})
	assert.Equal(t, ledger.StatusIn, e.Status("Van 1"))
	assert.Equal(t, ledger.StatusIn, e.Status("Van 2"))
	assert.Len(t, e.Unrecognized(), 2)
}

func TestCurrentOut_NewestFirst(t *testing.T) {
	e := status.New([]ledger.Event{
		ev(0, "A", 1, 1, "OUT"),
		ev(1, "B", 3, 2, "OUT"),
		ev(2, "C", -1, 0, "OUT"),
		ev(3, "D", -1, 0, "OUT"),
		ev(4, "E", 2, 3, "OUT"),
		ev(5, "E", 4, 4, "IN"),
	})
	var got []string
	for _, o := range e.CurrentOut() {
		got = append(got, o.Subject)
	}
	assert.Equal(t, []string{"B", "A", "D", "C"}, got)
}

func TestLastCheckout(t *testing.T) {
	out := ev(0, "Sam", 0, 1, "OUT")
	out.Category = "Day Off"
	e := status.New([]ledger.Event{out, ev(1, "Sam", 1, 2, "IN")})

	last, ok := e.LastCheckout("Sam")
	require.True(t, ok)
	assert.Equal(t, "Day Off", last.Category)
	_, ok = e.LastCheckout("Jo")
	assert.False(t, ok)
}

func TestStatusMap(t *testing.T) {
	e := status.New([]ledger.Event{ev(0, "Van 2", 0, 1, "OUT")})
	assert.Equal(t, map[string]ledger.Status{
		"Van 1": ledger.StatusIn,
		"Van 2": ledger.StatusOut,
	}, e.StatusMap([]string{"Van 1", "Van 2"}))
}

func TestEngine_ConcurrentReads(t *testing.T) {
	e := status.New([]ledger.Event{ev(0, "Sam", 0, 1, "OUT")})
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Status("Sam")
			_ = e.CurrentOut()
		}()
	}
	wg.Wait()
}

func TestStatus_EmptyAndIdempotent(t *testing.T) {
	empty := status.New(nil)
	assert.Equal(t, ledger.StatusIn, empty.Status("anyone"))
	assert.Empty(t, empty.CurrentOut())

	snapshot := []ledger.Event{
		ev(0, "A", 0, 1, "OUT"),
		ev(1, "B", 1, 2, "OUT"),
		ev(2, "A", 2, 3, "IN"),
	}
	subjects := []string{"A", "B", "C"}
	first := status.New(snapshot).StatusMap(subjects)
	second := status.New(snapshot).StatusMap(subjects)
	assert.Equal(t, first, second)
	assert.Equal(t, ledger.StatusOut, first["B"])
	assert.Equal(t, ledger.StatusIn, first["A"])
}
