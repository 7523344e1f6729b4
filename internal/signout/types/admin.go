package types

type RosterResponse struct {
	OK    bool     `json:"ok"`
	Names []string `json:"names"`
}

type HistoryResponse struct {
	OK     bool        `json:"ok"`
	Board  string      `json:"board"`
	Events []EventView `json:"events"`
}

// PurgeRequest clears a whole ledger when All is set, otherwise drops the
// rows whose id is listed.
type PurgeRequest struct {
	All bool    `json:"all,omitempty"`
	IDs []int64 `json:"ids,omitempty"`
}

type PurgeResponse struct {
	OK      bool `json:"ok"`
	Removed int  `json:"removed"`
}

type RefreshResponse struct {
	OK    bool `json:"ok"`
	Staff int  `json:"staff"`
}
