package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// HeaderChange describes what EnsureHeader did.
type HeaderChange struct {
	// Initialized is set when the ledger had no header at all.
	Initialized bool
	// Added lists required columns appended to an existing header.
	Added []string
}

// Drifted reports whether an existing header had to grow.
func (c HeaderChange) Drifted() bool { return len(c.Added) > 0 }

// MissingColumns returns the required columns absent from header, in
// required order.  Matching ignores surrounding space and case.
func MissingColumns(header, required []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[strings.ToLower(r)]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// EnsureHeader makes l's header contain every required column.  Existing
// columns keep their order; missing ones are appended.  A complete header
// is left untouched.
func EnsureHeader(ctx context.Context, l store.Ledger, required []string) (HeaderChange, error) {
	header, err := l.ReadHeader(ctx)
	if err != nil {
		return HeaderChange{}, fmt.Errorf("read header %s: %w", l.Name(), err)
	}

	if len(header) == 0 {
		if err := l.ReplaceHeader(ctx, required); err != nil {
			return HeaderChange{}, fmt.Errorf("init header %s: %w", l.Name(), err)
		}
		return HeaderChange{Initialized: true}, nil
	}

	missing := MissingColumns(header, required)
	if len(missing) == 0 {
		return HeaderChange{}, nil
	}

	grown := make([]string, 0, len(header)+len(missing))
	grown = append(grown, header...)
	grown = append(grown, missing...)
	if err := l.ReplaceHeader(ctx, grown); err != nil {
		return HeaderChange{}, fmt.Errorf("extend header %s: %w", l.Name(), err)
	}
	return HeaderChange{Added: missing}, nil
}

// Guard serializes EnsureHeader for one ledger within the process.
type Guard struct {
	mu       sync.Mutex
	ledger   store.Ledger
	required []string
}

func NewGuard(l store.Ledger, required []string) *Guard {
	return &Guard{ledger: l, required: required}
}

func (g *Guard) Ensure(ctx context.Context) (HeaderChange, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return EnsureHeader(ctx, g.ledger, g.required)
}
