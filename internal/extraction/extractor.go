package extraction

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrUnreadableDocument is returned when the document bytes cannot be opened or decoded
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrUnsupportedContent is returned when an extractor cannot handle the content type
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Extractor turns an uploaded document into its text lines
type Extractor interface {
	// ExtractLines returns the document's lines in reading order, pages
	// concatenated, with trailing whitespace removed from each line.
	// A readable document without text yields no lines and no error.
	ExtractLines(ctx context.Context, data []byte, contentType string) ([]string, error)
	// Close releases resources held by the extractor
	Close() error
}

var pdfMagic = []byte("%PDF-")

// isPDF reports whether the upload should be treated as a PDF
func isPDF(data []byte, contentType string) bool {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "application/pdf" {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic)
}

// splitLines breaks page text into lines and strips trailing whitespace
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimRightFunc(line, unicode.IsSpace))
	}
	// A page ending in a newline leaves one empty trailing element
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// HasText reports whether any line contains something besides whitespace
func HasText(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}
