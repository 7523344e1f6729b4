package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

// Roster is an in-memory staff roster.
type Roster struct {
	mu      sync.RWMutex
	records []credential.Record

	// Reads counts ReadAll calls.  Tests use it to observe caching.
	Reads int
	Err   error
}

func NewRoster(records ...credential.Record) *Roster {
	return &Roster{records: append([]credential.Record(nil), records...)}
}

func (r *Roster) ReadAll(_ context.Context) ([]credential.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads++
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]credential.Record(nil), r.records...), nil
}

// UpsertStaff replaces the record with the same name or appends a new one.
func (r *Roster) UpsertStaff(_ context.Context, rec credential.Record) error {
	rec.Name = strings.TrimSpace(rec.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].Name == rec.Name {
			r.records[i] = rec
			return nil
		}
	}
	r.records = append(r.records, rec)
	return nil
}
