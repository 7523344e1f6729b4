package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// Column names shared by every board.
const (
	ColumnID        = "id"
	ColumnTimestamp = "timestamp"
	ColumnAction    = "action"
	ColumnStatus    = "status"
	ColumnEventID   = "event_id"
)

// TimestampLayout is how new events are written.
const TimestampLayout = time.RFC3339

// Schema maps a board's ledger columns onto Event fields.
type Schema struct {
	// Ledger is the store-level ledger name.
	Ledger string

	Subject  string
	Actor    string
	Category string
	Detail   string
	// Passengers is "" for boards without passengers.
	Passengers string

	// Columns is the required header.  New ledgers are created with it in
	// this order; existing ledgers only gain what they lack.
	Columns []string
}

// People is the staff sign-out board.  The person signing is the subject.
var People = Schema{
	Ledger:   "logs",
	Subject:  "name",
	Actor:    "name",
	Category: "reason",
	Detail:   "other_reason",
	Columns: []string{
		ColumnID, ColumnTimestamp, "name", "reason", "other_reason",
		ColumnAction, ColumnStatus, ColumnEventID,
	},
}

// Vehicles is the shared van pool board.
var Vehicles = Schema{
	Ledger:     "vans",
	Subject:    "van",
	Actor:      "driver",
	Category:   "purpose",
	Detail:     "other_purpose",
	Passengers: "passengers",
	Columns: []string{
		ColumnID, ColumnTimestamp, "van", "driver", "purpose", "passengers",
		"other_purpose", ColumnAction, ColumnStatus, ColumnEventID,
	},
}

// Encode renders e as a ledger row.  Timestamps are written in loc.
func (s Schema) Encode(e Event, loc *time.Location) store.Row {
	if loc == nil {
		loc = time.UTC
	}
	row := store.Row{
		ColumnAction:  string(e.Action),
		ColumnStatus:  string(e.Action.Result()),
		ColumnEventID: e.EventID,
		s.Category:    e.Category,
		s.Detail:      e.Detail,
	}
	if e.HasSeq {
		row[ColumnID] = strconv.FormatInt(e.Seq, 10)
	}
	if e.TimeKnown {
		row[ColumnTimestamp] = e.Timestamp.In(loc).Format(TimestampLayout)
	}
	// Actor first so that a shared subject/actor column holds the subject.
	row[s.Actor] = e.Actor
	row[s.Subject] = e.Subject
	if s.Passengers != "" {
		row[s.Passengers] = strings.Join(e.Passengers, ", ")
	}
	return row
}
