package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func recomputeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [creatorId...]",
		Short: "Rebuild creator summaries from the transaction log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			for _, id := range args {
				s, err := rec.Recompute(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("recompute %s: %w", id, err)
				}
				fmt.Fprintf(out, "%s: available=%d total=%d monthly=%d (%s) direct=%d network=%d\n",
					s.CreatorID, s.AvailableBalance, s.TotalEarnings, s.MonthlyRevenue, s.RevenueMonth,
					s.DirectEarnings, s.NetworkEarnings)
			}
			return nil
		},
	}
}
