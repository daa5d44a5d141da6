package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/database"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

var Version = "dev"

// opener connects to the ledger store. The returned func releases it.
type opener func() (*billing.Reconciler, func(), error)

func main() {
	if err := newRootCmd(openDatabase).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tool for the CreatorPay ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(recomputeCmd(open))
	rootCmd.AddCommand(auditCmd(open))
	rootCmd.AddCommand(exportCmd(open))
	return rootCmd
}

func openDatabase() (*billing.Reconciler, func(), error) {
	env.SetupEnvFile()
	db := database.SetupDatabase()
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	rec := billing.NewReconcilerFromDB(db, billing.WithCatalog(catalog.Default()))
	return rec, func() { _ = sqlDB.Close() }, nil
}
