package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var errUnbalanced = errors.New("ledger entries do not add up")

func auditCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [eventId]",
		Short: "Check that the ledger entries of a payment event sum to its gross",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			rep, err := rec.Audit(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("audit %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Event %s\n", rep.EventID)
			fmt.Fprintln(out, strings.Repeat("=", 40))
			for _, t := range rep.Entries {
				fmt.Fprintf(out, "  %-22s %-20s %10d\n", t.Kind, t.OwnerID, t.Amount)
			}
			fmt.Fprintf(out, "  %-43s %10d\n", "sum", rep.Sum)
			fmt.Fprintf(out, "  %-43s %10d\n", "gross", rep.Gross)
			if !rep.Balanced {
				for _, p := range rep.Problems {
					fmt.Fprintf(out, "  ! %s\n", p)
				}
				return errUnbalanced
			}
			fmt.Fprintln(out, "  OK")
			return nil
		},
	}
}
