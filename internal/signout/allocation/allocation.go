// Package allocation picks which pool resource is handed out next.
package allocation

import "github.com/ethanesterson-creator/SignOut/internal/signout/ledger"

// NextAvailable returns the first pool member, in declared order, that is
// not OUT.  Members missing from statuses count as available.
func NextAvailable(pool []string, statuses map[string]ledger.Status) (string, bool) {
	for _, id := range pool {
		if statuses[id] != ledger.StatusOut {
			return id, true
		}
	}
	return "", false
}

// Out returns the pool members that are OUT, in pool order.
func Out(pool []string, statuses map[string]ledger.Status) []string {
	var out []string
	for _, id := range pool {
		if statuses[id] == ledger.StatusOut {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether id is a pool member.
func Contains(pool []string, id string) bool {
	for _, p := range pool {
		if p == id {
			return true
		}
	}
	return false
}
