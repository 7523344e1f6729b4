// Package ledger turns loosely-typed ledger rows into validated events and
// keeps the ledger header healthy.  Nothing here holds state between
// calls except the header Guard's mutex.
package ledger

import (
	"strings"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// Action is what an event did to its subject.
type Action string

const (
	ActionCheckout Action = "CHECKOUT"
	ActionCheckin  Action = "CHECKIN"
)

// ParseAction accepts CHECKOUT/CHECKIN and the older OUT/IN spellings,
// case-insensitively.
func ParseAction(s string) (Action, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHECKOUT", "OUT":
		return ActionCheckout, true
	case "CHECKIN", "IN":
		return ActionCheckin, true
	default:
		return "", false
	}
}

// Result is the status an action leaves its subject in.
func (a Action) Result() Status {
	if a == ActionCheckout {
		return StatusOut
	}
	return StatusIn
}

// Status is a subject's availability.
type Status string

const (
	StatusIn  Status = "IN"
	StatusOut Status = "OUT"
)

// ParseStatus is fail-open: only a case-insensitive "OUT" is OUT.  Blank,
// malformed and unrecognized values are IN.
func ParseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusOut)) {
		return StatusOut
	}
	return StatusIn
}

// Recognized reports whether s is literally IN or OUT (any case).  Used to
// surface rows whose status was defaulted.
func Recognized(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, string(StatusIn)) || strings.EqualFold(s, string(StatusOut))
}

// Event is a coerced ledger row.
type Event struct {
	// Seq is valid only when HasSeq is true.
	Seq    int64
	HasSeq bool

	EventID string

	// Timestamp is valid only when TimeKnown is true.
	Timestamp time.Time
	TimeKnown bool

	Subject  string
	Actor    string
	Category string
	Detail   string

	// Action is "" when the cell held something unrecognizable.
	Action Action
	// RawStatus is the resulting-status cell as written.
	RawStatus string

	Passengers []string

	// Position is the row's index in the ledger as read.
	Position int

	Row store.Row
}

// Status is the event's resulting status under the fail-open rule.
func (e Event) Status() Status {
	return ParseStatus(e.RawStatus)
}
