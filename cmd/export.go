package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicecanon/internal/export"
	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

var exportCmd = &cobra.Command{
	Use:   "export [canonical-json...]",
	Short: "Render canonical invoices as an XLSX workbook",
	Long: `Export reads one or more canonical invoice records (the JSON the
normalize command produces) and renders them as an XLSX workbook with
goods lines and fee lines on separate sheets.`,
	Example: `  # Export one invoice
  invoicecanon export canonical.json -o invoices.xlsx

  # Combine a batch into one workbook
  invoicecanon export week-*.json -o week.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "invoices.xlsx", "Output workbook path")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	outputPath, _ := cmd.Flags().GetString("output")

	invoices := make([]*models.CanonicalInvoice, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var invoice models.CanonicalInvoice
		if err := json.Unmarshal(data, &invoice); err != nil {
			return fmt.Errorf("%s is not a canonical invoice: %w", path, err)
		}
		invoices = append(invoices, &invoice)
	}

	workbook, err := export.NewXLSXWriter().Write(invoices)
	if err != nil {
		return fmt.Errorf("failed to render workbook: %w", err)
	}

	if err := os.WriteFile(outputPath, workbook, 0644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	log.Info().
		Int("invoices", len(invoices)).
		Str("output", outputPath).
		Msg("Workbook exported")

	return nil
}
