package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/cache"
)

const rosterKey = "roster"

// Source is the roster collaborator.
type Source interface {
	ReadAll(ctx context.Context) ([]Record, error)
}

// Directory serves roster snapshots from a Source, refreshing at most once
// per TTL.  Roster edits made outside the process take effect on the next
// refresh or after Invalidate.
type Directory struct {
	source Source
	ttl    time.Duration
	cache  *cache.Cache[*Roster]
}

func NewDirectory(src Source, ttl time.Duration) *Directory {
	return &Directory{
		source: src,
		ttl:    ttl,
		cache:  cache.New[*Roster](),
	}
}

// Snapshot returns the current roster.
func (d *Directory) Snapshot(ctx context.Context) (*Roster, error) {
	return d.cache.GetOrRefresh(ctx, rosterKey, d.ttl, func(ctx context.Context) (*Roster, error) {
		recs, err := d.source.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		return NewRoster(recs), nil
	})
}

// Authorize is Snapshot followed by the package-level Authorize.
func (d *Directory) Authorize(ctx context.Context, actor, code string) (Outcome, error) {
	r, err := d.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return Authorize(actor, code, r), nil
}

// Invalidate forces the next Snapshot to re-read the source.
func (d *Directory) Invalidate() {
	d.cache.Invalidate(rosterKey)
}
