package types

type Passenger struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// TransitionRequest is the body of a checkout or checkin call.  Subject may
// be empty: the people board signs the actor, and the vehicles board picks
// the next available van (checkout) or the only van out (checkin).
type TransitionRequest struct {
	Subject    string      `json:"subject,omitempty"`
	Actor      string      `json:"actor"`
	Code       string      `json:"code"`
	Category   string      `json:"category,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	Passengers []Passenger `json:"passengers,omitempty"`
}

type EventView struct {
	ID         *int64   `json:"id,omitempty"`
	EventID    string   `json:"event_id,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Subject    string   `json:"subject"`
	Actor      string   `json:"actor,omitempty"`
	Category   string   `json:"category,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	Action     string   `json:"action,omitempty"`
	Status     string   `json:"status"`
	Passengers []string `json:"passengers,omitempty"`
}

type TransitionResponse struct {
	OK         bool      `json:"ok"`
	Board      string    `json:"board"`
	Event      EventView `json:"event"`
	ServerTime string    `json:"server_time"`
}

type PoolEntry struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Last   *EventView `json:"last,omitempty"`
}

type BoardResponse struct {
	OK            bool        `json:"ok"`
	Board         string      `json:"board"`
	Out           []EventView `json:"out"`
	Pool          []PoolEntry `json:"pool,omitempty"`
	NextAvailable string      `json:"next_available,omitempty"`
	Categories    []string    `json:"categories,omitempty"`
	ServerTime    string      `json:"server_time"`
}

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Subject string `json:"subject,omitempty"`
}
