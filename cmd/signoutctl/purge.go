package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) purgeCmd() *cobra.Command {
	var (
		all bool
		ids []int64
	)
	cmd := &cobra.Command{
		Use:   "purge <board>",
		Short: "Remove ledger rows (all, or by id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(ids) > 0) {
				return errors.New("give exactly one of --all or --ids")
			}
			removed, err := c.admin.Purge(cmd.Context(), args[0], all, ids)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rows from %s\n", removed, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every row (header is kept)")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "row ids to remove")
	return cmd
}
