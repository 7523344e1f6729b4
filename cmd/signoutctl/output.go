package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// shouldUseColor respects NO_COLOR and CLICOLOR_FORCE, otherwise colours
// only when w is a terminal.
func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func colorStatus(s ledger.Status, color bool) string {
	if !color {
		return string(s)
	}
	if s == ledger.StatusOut {
		return ansiRed + string(s) + ansiReset
	}
	return ansiGreen + string(s) + ansiReset
}

// since renders an event time as "3 minutes ago"; unknown times are "?".
func since(ev ledger.Event, now time.Time) string {
	if !ev.TimeKnown {
		return "?"
	}
	return humanize.RelTime(ev.Timestamp, now, "ago", "from now")
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
