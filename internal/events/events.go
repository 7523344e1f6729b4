package events

import (
	"context"
	"strings"
)

// Topic prefixes.  Full topics are "signout.<board>.<action>", e.g.
// "signout.vehicles.checkout".
const (
	TopicPrefix = "signout"
	TopicAll    = "signout.>"

	TopicPurged = "purged"
)

// Topic builds the subject a board transition is published on.
func Topic(board, action string) string {
	return TopicPrefix + "." + board + "." + strings.ToLower(action)
}

// Transition is published after a CHECKOUT or CHECKIN is appended.
type Transition struct {
	Board      string   `json:"board"`
	Seq        int64    `json:"id"`
	EventID    string   `json:"event_id"`
	Timestamp  string   `json:"timestamp"`
	Subject    string   `json:"subject"`
	Actor      string   `json:"actor"`
	Action     string   `json:"action"`
	Status     string   `json:"status"`
	Category   string   `json:"category,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	Passengers []string `json:"passengers,omitempty"`
}

// Purged is published after an admin purge rewrote a ledger.
type Purged struct {
	Board   string `json:"board"`
	All     bool   `json:"all"`
	Removed int    `json:"removed"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
