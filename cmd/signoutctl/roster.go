package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

func (c *cli) rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect or edit the staff roster",
	}
	cmd.AddCommand(c.rosterListCmd())
	cmd.AddCommand(c.rosterSetCmd())
	return cmd
}

type staffJSON struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (c *cli) rosterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff (codes are never shown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := c.stores.Roster.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput {
				out := make([]staffJSON, 0, len(recs))
				for _, r := range recs {
					out = append(out, staffJSON{Name: r.Name, Active: r.Active})
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tACTIVE\tCODE SET")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%v\t%v\n", r.Name, r.Active, credential.Normalize(r.Code) != "")
			}
			return tw.Flush()
		},
	}
}

func (c *cli) rosterSetCmd() *cobra.Command {
	var inactive bool
	cmd := &cobra.Command{
		Use:   "set <name> <code>",
		Short: "Add a staff member or change their code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.stores.Staff == nil {
				return errors.New("roster is read from " + c.cfg.RosterFile + "; edit that file instead")
			}
			rec := credential.Record{Name: args[0], Code: args[1], Active: !inactive}
			if err := c.stores.Staff.UpsertStaff(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (active=%v)\n", rec.Name, rec.Active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&inactive, "inactive", false, "mark the staff member inactive")
	return cmd
}
