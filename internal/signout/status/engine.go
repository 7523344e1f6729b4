// Package status derives each subject's IN/OUT state from a ledger
// snapshot.  An Engine is immutable once built and safe for concurrent use.
package status

import (
	"slices"

	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
)

// Engine indexes one snapshot by subject.
type Engine struct {
	history  map[string][]ledger.Event
	subjects []string
}

// New groups events by subject and orders each group with Compare.
func New(events []ledger.Event) *Engine {
	e := &Engine{history: make(map[string][]ledger.Event)}
	for _, ev := range events {
		if _, ok := e.history[ev.Subject]; !ok {
			e.subjects = append(e.subjects, ev.Subject)
		}
		e.history[ev.Subject] = append(e.history[ev.Subject], ev)
	}
	for _, h := range e.history {
		slices.SortStableFunc(h, Compare)
	}
	return e
}

// Compare orders events of one subject oldest first:
//   - events with a known timestamp precede those without;
//   - known timestamps ascend, then sequence id ascends (a missing id
//     sorts below any present one);
//   - unknown-timestamp events keep ledger order.
//
// Callers must sort stably so that full ties keep ledger order.
func Compare(a, b ledger.Event) int {
	if a.TimeKnown != b.TimeKnown {
		if a.TimeKnown {
			return -1
		}
		return 1
	}
	if !a.TimeKnown {
		return 0
	}
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.HasSeq && b.HasSeq:
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
	case b.HasSeq:
		return -1
	case a.HasSeq:
		return 1
	}
	return 0
}

// Subjects lists every subject seen, in order of first appearance.
func (e *Engine) Subjects() []string {
	return slices.Clone(e.subjects)
}

// LastEvent is the event that decides subject's status.
func (e *Engine) LastEvent(subject string) (ledger.Event, bool) {
	h := e.history[subject]
	if len(h) == 0 {
		return ledger.Event{}, false
	}
	return h[len(h)-1], true
}

// LastCheckout is the most recent CHECKOUT event for subject.
func (e *Engine) LastCheckout(subject string) (ledger.Event, bool) {
	h := e.history[subject]
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Action == ledger.ActionCheckout {
			return h[i], true
		}
	}
	return ledger.Event{}, false
}

// Status is OUT only when the last event's status reads OUT.  Subjects
// with no history are IN.
func (e *Engine) Status(subject string) ledger.Status {
	last, ok := e.LastEvent(subject)
	if !ok {
		return ledger.StatusIn
	}
	return last.Status()
}

// StatusMap evaluates Status for each of subjects.
func (e *Engine) StatusMap(subjects []string) map[string]ledger.Status {
	out := make(map[string]ledger.Status, len(subjects))
	for _, s := range subjects {
		out[s] = e.Status(s)
	}
	return out
}

// CurrentOut returns the last event of every OUT subject, newest first.
// Entries without a known timestamp come last, most recently appended
// first.
func (e *Engine) CurrentOut() []ledger.Event {
	var out []ledger.Event
	for _, s := range e.subjects {
		if last, _ := e.LastEvent(s); last.Status() == ledger.StatusOut {
			out = append(out, last)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Event) int {
		if a.TimeKnown != b.TimeKnown {
			if a.TimeKnown {
				return -1
			}
			return 1
		}
		if a.TimeKnown {
			if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
				return c
			}
		}
		return b.Position - a.Position
	})
	return out
}

// Unrecognized returns last events whose status cell is neither IN nor
// OUT.  Those subjects were defaulted to IN.
func (e *Engine) Unrecognized() []ledger.Event {
	var out []ledger.Event
	for _, s := range e.subjects {
		if last, _ := e.LastEvent(s); !ledger.Recognized(last.RawStatus) {
			out = append(out, last)
		}
	}
	return out
}
