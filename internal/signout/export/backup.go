package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// BackupScheduler periodically exports every ledger as CSV to a
// Destination.  An interval of 0 disables it.
type BackupScheduler struct {
	ledgers  []store.Ledger
	dest     Destination
	prefix   string
	interval time.Duration
	logger   *slog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

type BackupConfig struct {
	Interval time.Duration
	// Prefix is prepended to every object key, e.g. "backups" gives
	// "backups/logs.csv".
	Prefix string
}

// NewBackupScheduler creates a scheduler but does not start it.
func NewBackupScheduler(ledgers []store.Ledger, dest Destination, cfg BackupConfig, logger *slog.Logger) *BackupScheduler {
	return &BackupScheduler{
		ledgers:  ledgers,
		dest:     dest,
		prefix:   cfg.Prefix,
		interval: cfg.Interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Key is the object key a ledger is backed up under.
func (b *BackupScheduler) Key(ledger string) string {
	return path.Join(b.prefix, ledger+".csv")
}

// Start runs an immediate backup, then repeats on the interval until ctx
// is cancelled or Stop is called.
func (b *BackupScheduler) Start(ctx context.Context) {
	b.started = true
	if b.interval <= 0 || b.dest == nil {
		b.logger.Info("ledger backups disabled")
		close(b.done)
		return
	}

	ctx, b.cancel = context.WithCancel(ctx)
	go b.loop(ctx)

	b.logger.Info("ledger backups started", "interval", b.interval, "prefix", b.prefix, "ledgers", len(b.ledgers))
}

// Stop signals the loop to exit and waits for it.  Safe to call more than
// once, and before Start.
func (b *BackupScheduler) Stop() {
	if !b.started {
		return
	}
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
	<-b.done
}

func (b *BackupScheduler) loop(ctx context.Context) {
	defer close(b.done)

	b.run(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("ledger backups stopped")
			return
		case <-ticker.C:
			b.run(ctx)
		}
	}
}

func (b *BackupScheduler) run(ctx context.Context) {
	if err := b.RunOnce(ctx); err != nil && ctx.Err() == nil {
		b.logger.Error("ledger backup failed", "err", err)
	}
}

// RunOnce backs up every ledger.  A failing ledger does not stop the
// others; all failures are returned together.
func (b *BackupScheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, l := range b.ledgers {
		var buf bytes.Buffer
		n, err := Ledger(ctx, l, &buf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := b.Key(l.Name())
		if err := b.dest.Put(ctx, key, buf.Bytes()); err != nil {
			errs = append(errs, fmt.Errorf("backup %s: %w", l.Name(), err))
			continue
		}
		b.logger.Debug("ledger backed up", "ledger", l.Name(), "rows", n, "key", key)
	}
	return errors.Join(errs...)
}
