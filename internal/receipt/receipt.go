package receipt

import "github.com/zombor/receipt-lines/internal/lineitem"

// ParseResult is the outcome of parsing one uploaded receipt
type ParseResult struct {
	ID        string            `json:"id"`
	Filename  string            `json:"filename"`
	Date      string            `json:"date"`       // receipt date, or "unknown"
	LineCount int               `json:"line_count"` // text lines extracted from the document
	Records   []lineitem.Record `json:"records"`
}
