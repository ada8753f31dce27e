package extraction

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts the text layer of PDFs with MuPDF
type Fitz struct{}

// NewFitz creates a new Fitz extractor
func NewFitz() *Fitz {
	return &Fitz{}
}

// ExtractLines reads every page's text layer in page order
func (f *Fitz) ExtractLines(ctx context.Context, data []byte, contentType string) ([]string, error) {
	if !isPDF(data, contentType) {
		return nil, fmt.Errorf("fitz text layer for %q: %w", contentType, ErrUnsupportedContent)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w: %w", ErrUnreadableDocument, err)
	}
	defer doc.Close()

	var lines []string
	for page := 0; page < doc.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(page)
		if err != nil {
			return nil, fmt.Errorf("reading text of page %d: %w: %w", page+1, ErrUnreadableDocument, err)
		}
		lines = append(lines, splitLines(text)...)
	}

	return lines, nil
}

// Close is a no-op; documents are closed after each extraction
func (f *Fitz) Close() error {
	return nil
}
