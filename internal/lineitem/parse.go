package lineitem

import (
	"strings"
)

// receiptDatePattern matches the "DD/MM/YYYY HH:MM" transaction stamp
var receiptDatePattern = spaced(`\b(\d{2}/\d{2}/\d{4})\s+\d{2}:\d{2}\b`)

// Options controls per-call parsing policy
type Options struct {
	// NegateDiscounts forces "Korting bon" amounts negative whatever sign was printed
	NegateDiscounts bool
}

// DefaultOptions returns the options used by the service unless configured otherwise
func DefaultOptions() Options {
	return Options{NegateDiscounts: true}
}

// ReceiptDate returns the date of the first "DD/MM/YYYY HH:MM" stamp in the
// document, or UnknownDate
func ReceiptDate(lines []string) string {
	m := receiptDatePattern.FindStringSubmatch(strings.Join(lines, "\n"))
	if m == nil {
		return UnknownDate
	}
	return m[1]
}

// Receipt is one parsed document
type Receipt struct {
	Date    string // receipt date, or UnknownDate
	Records []Record
}

// Parse turns the ordered text lines of one receipt into line-item records.
// Lines matching no known shape are skipped. Parse keeps no state between
// calls and is safe for concurrent use.
func Parse(lines []string, opts Options) []Record {
	return ParseReceipt(lines, opts).Records
}

// ParseReceipt is Parse that also reports the receipt date stamped on the records
func ParseReceipt(lines []string, opts Options) Receipt {
	records := make([]Record, 0)
	lc := lineContext{
		date: ReceiptDate(lines),
		opts: opts,
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		out := classify(line, lc)
		if !out.matched {
			continue
		}
		if out.record != nil {
			records = append(records, *out.record)
			if out.tracks {
				lc.last = trackedItem{name: out.record.Description, code: out.record.ArticleCode}
			}
		}
	}

	return Receipt{Date: lc.date, Records: records}
}
