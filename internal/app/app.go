// Package app assembles boards and their stores from configuration.  The
// server and signoutctl share it so both see the same ledgers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethanesterson-creator/SignOut/internal/config"
	"github.com/ethanesterson-creator/SignOut/internal/db"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/memory"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/postgres"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/rosterfile"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/sqlite"
)

// Stores are the collaborators behind both boards.
type Stores struct {
	People   store.Ledger
	Vehicles store.Ledger
	Roster   store.RosterStore
	// Staff is nil when the roster comes from a file.
	Staff store.RosterWriter

	closers []func() error
}

// Close releases the stores in reverse open order.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenStores opens the backend cfg.Store names.  In dev, an empty staff
// table is seeded so the kiosk is usable immediately.
func OpenStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Store {
	case config.StoreSQLite:
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		worker := db.NewWorker(sqlDB)
		s.closers = append(s.closers, sqlDB.Close, func() error { worker.Close(); return nil })

		if cfg.IsDev() && cfg.RosterFile == "" {
			if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{}); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		staff := sqlite.NewStaffStore(sqlDB, worker)
		s.People = sqlite.NewLedger(sqlDB, worker, ledger.People.Ledger)
		s.Vehicles = sqlite.NewLedger(sqlDB, worker, ledger.Vehicles.Ledger)
		s.Roster, s.Staff = staff, staff
		logger.Info("store ready", "store", cfg.Store, "path", cfg.DBPath)

	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		staff := pg.Staff()
		s.People = pg.Ledger(ledger.People.Ledger)
		s.Vehicles = pg.Ledger(ledger.Vehicles.Ledger)
		s.Roster, s.Staff = staff, staff
		logger.Info("store ready", "store", cfg.Store)

	case config.StoreMemory:
		var seed []credential.Record
		if cfg.IsDev() {
			seed = db.DevStaff
		}
		staff := memory.NewRoster(seed...)
		s.People = memory.NewLedger(ledger.People.Ledger, nil)
		s.Vehicles = memory.NewLedger(ledger.Vehicles.Ledger, nil)
		s.Roster, s.Staff = staff, staff
		logger.Warn("using in-memory store; ledgers are lost on exit")

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.RosterFile != "" {
		s.Roster, s.Staff = rosterfile.New(cfg.RosterFile), nil
		logger.Info("roster from file", "path", cfg.RosterFile)
	}
	return s, nil
}

// Directory is the cached roster the credential gate reads.
func Directory(cfg config.Config, s *Stores) *credential.Directory {
	return credential.NewDirectory(s.Roster, cfg.RosterTTL)
}

// Boards builds both coordinators with cfg's pool and category lists.
func Boards(cfg config.Config, s *Stores, dir *credential.Directory, opts service.Options) service.Boards {
	vehicles := cfg.Vehicles
	if len(vehicles) == 0 {
		vehicles = service.DefaultVehicles
	}
	reasons := cfg.PeopleReasons
	if len(reasons) == 0 {
		reasons = service.DefaultPeopleReasons
	}
	purposes := cfg.VehiclePurposes
	if len(purposes) == 0 {
		purposes = service.DefaultVehiclePurposes
	}

	if opts.Location == nil {
		opts.Location = cfg.Location()
	}
	if opts.ViewTTL == 0 {
		opts.ViewTTL = cfg.LedgerTTL
	}

	return service.NewBoards(
		service.NewCoordinator(service.PeopleBoard(s.People, reasons), dir, opts),
		service.NewCoordinator(service.VehicleBoard(s.Vehicles, vehicles, purposes, cfg.RequirePassengerCodes), dir, opts),
	)
}
