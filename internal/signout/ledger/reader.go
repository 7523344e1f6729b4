package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// naiveLayouts are the zone-less formats older kiosk revisions and
// spreadsheet edits produce.  They are read in the reader's location.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// Reader coerces raw rows for one schema.
type Reader struct {
	schema   Schema
	location *time.Location
}

// NewReader returns a reader that interprets zone-less timestamps in loc
// (UTC when nil).
func NewReader(s Schema, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{schema: s, location: loc}
}

func (r *Reader) Schema() Schema { return r.schema }

func (r *Reader) Location() *time.Location { return r.location }

// ReadAll loads and decodes every row of l.  Only a failure to read the
// source at all is an error.
func (r *Reader) ReadAll(ctx context.Context, l store.Ledger) ([]Event, error) {
	rows, err := l.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", l.Name(), err)
	}
	return r.Decode(rows), nil
}

// Decode coerces rows in ledger order.  Rows without a subject are
// dropped; every other row yields an event, however malformed.
func (r *Reader) Decode(rows []store.Row) []Event {
	out := make([]Event, 0, len(rows))
	for i, row := range rows {
		subject := Cell(row, r.schema.Subject)
		if subject == "" {
			continue
		}
		e := Event{
			Subject:   subject,
			Actor:     Cell(row, r.schema.Actor),
			Category:  Cell(row, r.schema.Category),
			Detail:    Cell(row, r.schema.Detail),
			EventID:   Cell(row, ColumnEventID),
			RawStatus: Cell(row, ColumnStatus),
			Position:  i,
			Row:       row,
		}
		e.Seq, e.HasSeq = ParseSeq(Cell(row, ColumnID))
		e.Timestamp, e.TimeKnown = ParseTimestamp(Cell(row, ColumnTimestamp), r.location)
		if a, ok := ParseAction(Cell(row, ColumnAction)); ok {
			e.Action = a
		}
		if r.schema.Passengers != "" {
			e.Passengers = SplitNames(Cell(row, r.schema.Passengers))
		}
		out = append(out, e)
	}
	return out
}

// ParseSeq parses a sequence id.  Integral floats such as "12.0" are
// accepted since numeric cells round-trip that way.
func ParseSeq(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParseTimestamp parses RFC 3339 or one of the naive layouts (in loc).
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SplitNames splits a comma-separated name list, dropping blanks.
func SplitNames(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ErrSeqExhausted means the ledger already holds the largest representable id.
var ErrSeqExhausted = errors.New("ledger: sequence ids exhausted")

// NextSeq is 1 + the largest parseable sequence id, or 1 when none parse.
func NextSeq(events []Event) (int64, error) {
	var hi int64
	for _, e := range events {
		if e.HasSeq && e.Seq > hi {
			hi = e.Seq
		}
	}
	return succ(hi)
}

// NextRowSeq is NextSeq over raw rows.  Rows Decode drops (no subject)
// still hold their ids.
func NextRowSeq(rows []store.Row) (int64, error) {
	var hi int64
	for _, r := range rows {
		if n, ok := ParseSeq(Cell(r, ColumnID)); ok && n > hi {
			hi = n
		}
	}
	return succ(hi)
}

func succ(hi int64) (int64, error) {
	if hi == math.MaxInt64 {
		return 0, ErrSeqExhausted
	}
	return hi + 1, nil
}

// Cell looks a column up exactly first, then by trimmed case-insensitive
// match, since hand-edited headers drift.
func Cell(row store.Row, col string) string {
	if col == "" {
		return ""
	}
	if v, ok := row[col]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range row {
		if strings.EqualFold(strings.TrimSpace(k), col) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
