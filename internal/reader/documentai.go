// Package reader produces the untyped raw document tree the normalizer
// consumes. The Document AI implementation calls Google's invoice
// processor and flattens its entity list into plain maps; nothing
// downstream knows which reader produced a document.
package reader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoicecanon/internal/logger"
)

const (
	// MaxDocumentSizeBytes is the Document AI per-request limit (20MB).
	MaxDocumentSizeBytes = 20 * 1024 * 1024

	// DefaultTimeout bounds one processor call.
	DefaultTimeout = 60 * time.Second
)

// Reader turns one source document into a raw document tree.
type Reader interface {
	Read(ctx context.Context, document io.Reader) (map[string]any, error)
	Close() error
}

// DocumentAIConfig holds the processor coordinates.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIReader implements Reader using Google Document AI's invoice
// processor.
type DocumentAIReader struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIReader creates a reader with credentials from the
// environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: GOOGLE_PROJECT_ID, GOOGLE_LOCATION (e.g., "us" or "eu")
// Optional: GOOGLE_PROCESSOR_ID
func NewDocumentAIReader(ctx context.Context) (Reader, error) {
	const op = "NewDocumentAIReader"

	config := DocumentAIConfig{
		ProjectID:   getEnvVar("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		Location:    getEnvVar("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION"),
		ProcessorID: getEnvVar("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     DefaultTimeout,
	}

	if config.ProjectID == "" {
		return nil, WrapReadError(op, ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapReadError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapReadError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIReader{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai-reader"),
	}, nil
}

// NewDocumentAIReaderWithConfig creates a reader with explicit config
// and client (for testing).
func NewDocumentAIReaderWithConfig(config DocumentAIConfig, client *documentai.DocumentProcessorClient) Reader {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &DocumentAIReader{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai-reader"),
	}
}

// Close releases the underlying gRPC client.
func (r *DocumentAIReader) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Read sends one PDF through the invoice processor and flattens the
// response into a raw document tree.
func (r *DocumentAIReader) Read(ctx context.Context, document io.Reader) (map[string]any, error) {
	const op = "Read"

	pdfBytes, err := io.ReadAll(document)
	if err != nil {
		return nil, WrapReadError(op, err, "failed to read document data")
	}
	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, WrapReadError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapReadError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: r.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := r.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, r.mapProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapReadError(op, ErrEmptyResponse, "no document in response")
	}

	raw := flattenDocument(resp.Document)
	r.log.Debug().
		Int("entities", len(resp.Document.Entities)).
		Int("fields", len(raw)).
		Msg("Document AI response flattened")

	return raw, nil
}

func (r *DocumentAIReader) processorName() string {
	if r.config.ProcessorID != "" {
		if r.config.ProcessorVersion != "" {
			return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
				r.config.ProjectID, r.config.Location, r.config.ProcessorID, r.config.ProcessorVersion)
		}
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			r.config.ProjectID, r.config.Location, r.config.ProcessorID)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		r.config.ProjectID, r.config.Location, "default-invoice-processor")
}

// mapProcessingError converts Document AI transport errors to the
// package sentinels.
func (r *DocumentAIReader) mapProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapReadError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return WrapReadError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapReadError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", r.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapReadError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapReadError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapReadError(op, ErrReadFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// flattenDocument converts the entity list into a plain map tree keyed
// by entity type. Line item entities become an array of maps under
// "line_items", keyed by the property name after the "line_item/"
// prefix. Normalized values win over mention text when present, since
// the processor already resolved locale formatting there.
func flattenDocument(doc *documentaipb.Document) map[string]any {
	raw := make(map[string]any)
	var lines []any

	for _, entity := range doc.Entities {
		if entity.Type == "line_item" {
			line := make(map[string]any, len(entity.Properties))
			for _, prop := range entity.Properties {
				key := strings.TrimPrefix(prop.Type, "line_item/")
				line[key] = entityValue(prop)
			}
			if len(line) > 0 {
				lines = append(lines, line)
			}
			continue
		}
		raw[entity.Type] = entityValue(entity)
	}

	if lines != nil {
		raw["line_items"] = lines
	}
	return raw
}

// entityValue prefers the processor's normalized value: money becomes
// a float64 amount, dates become ISO strings. Everything else is the
// trimmed mention text.
func entityValue(entity *documentaipb.Document_Entity) any {
	if nv := entity.NormalizedValue; nv != nil {
		if money := nv.GetMoneyValue(); money != nil {
			return float64(money.Units) + float64(money.Nanos)/1e9
		}
		if date := nv.GetDateValue(); date != nil && date.Year != 0 {
			return fmt.Sprintf("%04d-%02d-%02d", date.Year, date.Month, date.Day)
		}
		if text := nv.GetText(); text != "" {
			return text
		}
	}
	return strings.TrimSpace(entity.MentionText)
}

// getEnvVar tries multiple environment variable names and returns the
// first non-empty value.
func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
