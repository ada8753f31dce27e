package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zombor/receipt-lines/internal/extraction"
	"github.com/zombor/receipt-lines/internal/lineitem"
)

// ErrNoDocument is returned when an upload carries no document bytes
var ErrNoDocument = errors.New("no document supplied")

// IDGenerator generates unique IDs for parse results
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Service extracts and parses uploaded receipts
type Service struct {
	extractor   extraction.Extractor
	fallback    extraction.Extractor
	options     lineitem.Options
	idGenerator IDGenerator
}

// NewService creates a new Service. fallback may be nil; when set it is used
// for documents the primary extractor finds no text in or cannot handle.
func NewService(extractor extraction.Extractor, fallback extraction.Extractor, options lineitem.Options) *Service {
	return NewServiceWithDeps(extractor, fallback, options, &uuidGenerator{})
}

// NewServiceWithDeps creates a new Service with a custom ID generator for testing
func NewServiceWithDeps(extractor extraction.Extractor, fallback extraction.Extractor, options lineitem.Options, idGen IDGenerator) *Service {
	return &Service{
		extractor:   extractor,
		fallback:    fallback,
		options:     options,
		idGenerator: idGen,
	}
}

// ParseDocument extracts the document's text and parses it into line-item records.
// A document without matching lines is a valid, empty result; a document that
// cannot be read is an error.
func (s *Service) ParseDocument(ctx context.Context, filename string, data []byte, contentType string) (*ParseResult, error) {
	if len(data) == 0 {
		return nil, ErrNoDocument
	}

	id := s.idGenerator.Generate()

	lines, err := s.extractLines(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"id", id,
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	parsed := lineitem.ParseReceipt(lines, s.options)
	records := parsed.Records
	if len(records) == 0 {
		slog.Warn("No line items found", "id", id, "filename", filename, "lines", len(lines))
	}

	slog.Info("Parsed receipt", "id", id, "filename", filename, "lines", len(lines), "records", len(records))

	return &ParseResult{
		ID:        id,
		Filename:  filename,
		Date:      parsed.Date,
		LineCount: len(lines),
		Records:   records,
	}, nil
}

// extractLines runs the primary extractor and, when configured, the fallback
func (s *Service) extractLines(ctx context.Context, data []byte, contentType string) ([]string, error) {
	lines, err := s.extractor.ExtractLines(ctx, data, contentType)
	if s.fallback == nil {
		return lines, err
	}

	switch {
	case err == nil && extraction.HasText(lines):
		return lines, nil
	case err == nil:
		slog.Info("Document has no text layer, transcribing", "content_type", contentType)
	case errors.Is(err, extraction.ErrUnsupportedContent):
		slog.Info("Content not supported by text extractor, transcribing", "content_type", contentType)
	default:
		return nil, err
	}

	lines, err = s.fallback.ExtractLines(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("transcribing: %w", err)
	}
	return lines, nil
}
