package service

import (
	"slices"
	"strings"

	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store"
)

// Board names used in URLs, topics and CLI arguments.
const (
	BoardPeople   = "people"
	BoardVehicles = "vehicles"
)

var (
	DefaultVehicles        = []string{"Van 1", "Van 2", "Van 3"}
	DefaultPeopleReasons   = []string{"Period Off", "Night Off", "Day Off", "Medical", "Program", "Other"}
	DefaultVehiclePurposes = []string{"Period Off", "Night Off", "Day Off", "Other"}
)

// Board is one ledger with its rules.  A board with a Pool hands out pool
// members; a board without one signs people in and out.
type Board struct {
	Name   string
	Schema ledger.Schema
	Ledger store.Ledger

	// Pool is the declared resource order for allocation.
	Pool []string

	// Categories, when set, is the closed list of accepted categories.
	Categories []string

	// RequirePassengerCodes makes every passenger pass the credential gate.
	RequirePassengerCodes bool
}

// PeopleBoard is the staff sign-out board on l.
func PeopleBoard(l store.Ledger, reasons []string) Board {
	return Board{
		Name:       BoardPeople,
		Schema:     ledger.People,
		Ledger:     l,
		Categories: reasons,
	}
}

// VehicleBoard is the van pool board on l.
func VehicleBoard(l store.Ledger, pool, purposes []string, requirePassengerCodes bool) Board {
	return Board{
		Name:                  BoardVehicles,
		Schema:                ledger.Vehicles,
		Ledger:                l,
		Pool:                  slices.Clone(pool),
		Categories:            purposes,
		RequirePassengerCodes: requirePassengerCodes,
	}
}

// Pooled reports whether subjects are allocated from a fixed pool.
func (b Board) Pooled() bool { return len(b.Pool) > 0 }

// category returns the configured spelling of c, matching without regard to
// case or surrounding space.  Any category is accepted when none are
// configured.
func (b Board) category(c string) (string, bool) {
	c = strings.TrimSpace(c)
	if len(b.Categories) == 0 {
		return c, true
	}
	for _, known := range b.Categories {
		if strings.EqualFold(known, c) {
			return known, true
		}
	}
	return "", false
}

// isOther reports whether c is a free-text category that needs detail.
func isOther(c string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(c)), "other")
}
