package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicecanon/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicecanon",
	Short: "Normalize heterogeneous vendor invoices into canonical records",
	Long: `invoicecanon takes the raw document trees an upstream reader
produces for vendor invoices (food suppliers, packaging distributors,
utilities, service providers) and turns them into one canonical record
shape: resolved header fields, classified commodity type, normalized
line items with validated pricing, and explicit warnings for everything
that could not be trusted.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
