package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicecanon/internal/config"
	"invoicecanon/internal/contract"
	"invoicecanon/internal/diagnostics"
	"invoicecanon/internal/logger"
	"invoicecanon/internal/normalize"
	"invoicecanon/internal/reader"
	"invoicecanon/internal/vendor"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [input-file]",
	Short: "Normalize a raw invoice document into the canonical record shape",
	Long: `Normalize takes one invoice document and produces the canonical
invoice record as JSON.

The input is either a raw document tree (JSON, as produced by an
upstream reader) or, with --pdf, a PDF that is first sent through
Google Document AI.

Optional environment variables:
  VENDOR_DIRECTORY - JSON file with the known-vendor list
  DATE_ORDER       - day-first (default) or month-first

Required for --pdf:
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION
  DOCUMENT_AI_PROCESSOR_ID`,
	Example: `  # Normalize a raw document tree to stdout
  invoicecanon normalize raw-invoice.json

  # Save the canonical record to a file
  invoicecanon normalize raw-invoice.json -o canonical.json

  # Read a PDF through Document AI first
  invoicecanon normalize invoice.pdf --pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	normalizeCmd.Flags().Bool("pdf", false, "Treat the input as a PDF and read it through Document AI")
	normalizeCmd.Flags().Bool("skip-validate", false, "Skip the output contract check")
	normalizeCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("normalize")

	outputPath, _ := cmd.Flags().GetString("output")
	isPDF, _ := cmd.Flags().GetBool("pdf")
	skipValidate, _ := cmd.Flags().GetBool("skip-validate")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	inputPath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeoutSecs, log)
	defer cancel()

	raw, err := loadRawDocument(ctx, inputPath, isPDF, log)
	if err != nil {
		return err
	}

	normalizer, err := buildNormalizer(cfg, log)
	if err != nil {
		return err
	}

	invoice, err := normalizer.Normalize(ctx, raw)
	if err != nil {
		log.Error().Err(err).Str("file", inputPath).Msg("Normalization failed")
		return err
	}

	if !skipValidate {
		if err := contract.Validate(invoice); err != nil {
			log.Error().Err(err).Msg("Canonical record failed the output contract")
			return err
		}
	}

	log.Info().
		Str("file", inputPath).
		Str("type", invoice.Detection.Type).
		Int("lines", len(invoice.LineItems)).
		Int("warnings", len(invoice.Warnings)).
		Msg("Normalization completed")

	return writeJSON(invoice, outputPath, log)
}

// buildNormalizer wires the pipeline from configuration: vendor
// directory (when configured), diagnostics tracker, classifier knobs.
func buildNormalizer(cfg *config.Config, log zerolog.Logger) (*normalize.Normalizer, error) {
	opts := normalize.Options{
		DateOrder: normalize.DateOrder(cfg.DateOrder),
		Classifier: normalize.ClassifierConfig{
			WideGap:     cfg.ClassifierWideGap,
			WideBoost:   cfg.ClassifierWideBoost,
			NarrowGap:   cfg.ClassifierNarrowGap,
			NarrowBoost: cfg.ClassifierNarrowBoost,
		},
		Tracker: diagnostics.NewTracker(nil, cfg.DiagnosticsCooldown),
	}

	if cfg.VendorDirectoryPath != "" {
		vendors, err := loadVendorDirectory(cfg.VendorDirectoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load vendor directory: %w", err)
		}
		opts.Matcher = vendor.NewMatcher(vendor.NewInMemoryDirectory(vendors), cfg.VendorMatchTimeout)
		log.Debug().
			Int("vendors", len(vendors)).
			Str("path", cfg.VendorDirectoryPath).
			Msg("Vendor directory loaded")
	}

	return normalize.NewNormalizer(opts), nil
}

func loadVendorDirectory(path string) ([]*vendor.Vendor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vendors []*vendor.Vendor
	if err := json.Unmarshal(data, &vendors); err != nil {
		return nil, fmt.Errorf("invalid vendor directory JSON: %w", err)
	}
	return vendors, nil
}

// loadRawDocument reads the input either as a raw document JSON tree
// or, for PDFs, through the Document AI reader.
func loadRawDocument(ctx context.Context, path string, isPDF bool, log zerolog.Logger) (any, error) {
	if isPDF || strings.HasSuffix(strings.ToLower(path), ".pdf") {
		r, err := reader.NewDocumentAIReader(ctx)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("Failed to close Document AI reader")
			}
		}()

		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open PDF file: %w", err)
		}
		defer file.Close()

		return r.Read(ctx, file)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	return raw, nil
}

// commandContext builds a timeout context that also cancels on SIGINT
// and SIGTERM.
func commandContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func writeJSON(v any, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output", outputPath).Msg("Output written")
	return nil
}
