package extraction

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// wordGap is the horizontal gap, as a fraction of the font size, above which
// two glyphs on one row are separated by a space
const wordGap = 0.3

// PDF extracts the text layer of PDFs with the pure-Go ledongthuc/pdf reader.
// Rows are rebuilt from glyph positions, so lines printed one under another
// inside a single text object stay separate.
type PDF struct{}

// NewPDF creates a new PDF extractor
func NewPDF() *PDF {
	return &PDF{}
}

// ExtractLines reads every page's rows top to bottom
func (p *PDF) ExtractLines(ctx context.Context, data []byte, contentType string) (lines []string, err error) {
	if !isPDF(data, contentType) {
		return nil, fmt.Errorf("pdf text layer for %q: %w", contentType, ErrUnsupportedContent)
	}

	// The reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("reading PDF: %w: %v", ErrUnreadableDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w: %w", ErrUnreadableDocument, err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, pageRows(page.Content().Text)...)
	}

	return lines, nil
}

// pageRows groups glyphs by rounded baseline, top row first, and joins each
// row's glyphs left to right
func pageRows(glyphs []pdf.Text) []string {
	rows := make(map[int][]pdf.Text)
	for _, g := range glyphs {
		y := int(math.Round(g.Y))
		rows[y] = append(rows[y], g)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	// PDF y grows upwards
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		line := joinRow(rows[y])
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// joinRow concatenates a row's glyphs in x order. Glyphs with equal x keep
// content stream order, which covers fonts without width tables.
func joinRow(row []pdf.Text) string {
	sort.SliceStable(row, func(a, b int) bool {
		return row[a].X < row[b].X
	})

	var sb strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGap*g.FontSize && !endsInSpace(prev.S) && !startsWithSpace(g.S) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
	}
	return strings.TrimRightFunc(sb.String(), unicode.IsSpace)
}

func endsInSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}

func startsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}

// Close is a no-op
func (p *PDF) Close() error {
	return nil
}
