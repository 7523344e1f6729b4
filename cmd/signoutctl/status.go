package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type outJSON struct {
	Board    string `json:"board"`
	Subject  string `json:"subject"`
	Actor    string `json:"actor"`
	Category string `json:"category,omitempty"`
	Since    string `json:"since,omitempty"`
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [board]",
		Short: "Show who and what is signed out",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := c.boards.Names()
			if len(args) == 1 {
				if _, err := c.boards.Get(args[0]); err != nil {
					return fmt.Errorf("%w: %s", err, args[0])
				}
				names = args
			}

			w := cmd.OutOrStdout()
			color := shouldUseColor(w)
			now := time.Now()
			var all []outJSON

			for _, name := range names {
				coord, _ := c.boards.Get(name)
				snap, err := coord.Snapshot(cmd.Context())
				if err != nil {
					return err
				}

				if c.jsonOutput {
					for _, ev := range snap.Out {
						o := outJSON{Board: name, Subject: ev.Subject, Actor: ev.Actor, Category: ev.Category}
						if ev.TimeKnown {
							o.Since = ev.Timestamp.Format(time.RFC3339)
						}
						all = append(all, o)
					}
					continue
				}

				fmt.Fprintf(w, "%s (%d out)\n", strings.ToUpper(name), len(snap.Out))
				tw := newTable(w)
				fmt.Fprintln(tw, "SUBJECT\tBY\tCATEGORY\tSINCE")
				for _, ev := range snap.Out {
					category := ev.Category
					if ev.Detail != "" {
						category += ": " + ev.Detail
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.Subject, ev.Actor, category, since(ev, now))
				}
				_ = tw.Flush()

				if len(snap.Pool) > 0 {
					for _, p := range snap.Pool {
						fmt.Fprintf(w, "  %-10s %s\n", p.ID, colorStatus(p.Status, color))
					}
					if snap.HasAvailable {
						fmt.Fprintf(w, "  next available: %s\n", snap.NextAvailable)
					} else {
						fmt.Fprintln(w, "  none available")
					}
				}
				fmt.Fprintln(w)
			}

			if c.jsonOutput {
				if all == nil {
					all = []outJSON{}
				}
				return printJSON(w, all)
			}
			return nil
		},
	}
}
