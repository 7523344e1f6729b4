// Package credential implements the PIN gate that precedes every ledger
// mutation: code normalization, roster lookup and the four-way outcome.
package credential

import (
	"crypto/subtle"
	"strings"
	"unicode"
)

// CodeLength is the canonical code width.  Shorter codes are left-padded
// with zeros; longer ones are kept as-is and simply never match a 4-digit
// roster code.
const CodeLength = 4

// Outcome is the result of an authorization attempt.  The zero value is
// not a valid outcome.
type Outcome int

const (
	Authorized Outcome = iota + 1
	UnknownActor
	InactiveActor
	WrongCode
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case UnknownActor:
		return "unknown_actor"
	case InactiveActor:
		return "inactive_actor"
	case WrongCode:
		return "wrong_code"
	default:
		return "invalid"
	}
}

// Record is one roster entry.  Code is stored exactly as the roster
// collaborator returned it.
type Record struct {
	Name   string
	Code   string
	Active bool
}

// Normalize converts a user- or roster-supplied code to its canonical form:
// whitespace removed, a trailing ".0" (numeric round-trip artifact)
// stripped, non-digits dropped, then left-padded with '0' to CodeLength.
// A code without any digit normalizes to "".
func Normalize(code string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
	s = strings.TrimSuffix(s, ".0")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) < CodeLength {
		digits = strings.Repeat("0", CodeLength-len(digits)) + digits
	}
	return digits
}

// ParseActive interprets a roster "active" cell.  true/yes/1 (any case)
// are active; everything else is not.
func ParseActive(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// Roster is an immutable lookup snapshot built from roster records.
type Roster struct {
	byName map[string]Record
	names  []string
}

// NewRoster indexes records by trimmed name.  Blank names are ignored.
// When a name occurs more than once an active record wins over an
// inactive one; otherwise the first occurrence is kept.
func NewRoster(records []Record) *Roster {
	r := &Roster{byName: make(map[string]Record, len(records))}
	for _, rec := range records {
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			continue
		}
		prev, ok := r.byName[rec.Name]
		if !ok {
			r.names = append(r.names, rec.Name)
		}
		if ok && (prev.Active || !rec.Active) {
			continue
		}
		r.byName[rec.Name] = rec
	}
	return r
}

// Lookup returns the record for name.
func (r *Roster) Lookup(name string) (Record, bool) {
	if r == nil {
		return Record{}, false
	}
	rec, ok := r.byName[strings.TrimSpace(name)]
	return rec, ok
}

// ActiveNames returns the active staff names in roster order.
func (r *Roster) ActiveNames() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		if r.byName[n].Active {
			out = append(out, n)
		}
	}
	return out
}

// Len is the number of distinct names.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Authorize checks actor's code against the roster.
func Authorize(actor, code string, roster *Roster) Outcome {
	rec, ok := roster.Lookup(actor)
	if !ok {
		return UnknownActor
	}
	if !rec.Active {
		return InactiveActor
	}
	want := Normalize(rec.Code)
	got := Normalize(code)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return WrongCode
	}
	return Authorized
}
