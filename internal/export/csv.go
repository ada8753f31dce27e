package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-lines/internal/lineitem"
)

// Header lists the CSV columns, named after the record fields
var Header = []string{"Date", "ArticleCode", "Description", "Quantity", "WeightKg", "UnitPrice", "Amount", "Kind"}

const (
	moneyPlaces  = 2
	weightPlaces = 3
)

// WriteCSVFile writes records to a CSV file at the given path
func WriteCSVFile(path string, records []lineitem.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %q: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes a header row and one row per record.
// Fields a record's kind does not carry are written as empty cells.
func WriteCSV(w io.Writer, records []lineitem.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row
func MarshalRecord(rec lineitem.Record) []string {
	row := make([]string, len(Header))
	row[0] = rec.Date
	row[1] = rec.ArticleCode
	row[2] = rec.Description
	if rec.Quantity != nil {
		row[3] = strconv.Itoa(*rec.Quantity)
	}
	row[4] = formatDecimal(rec.WeightKg, weightPlaces)
	row[5] = formatDecimal(rec.UnitPrice, moneyPlaces)
	row[6] = formatDecimal(rec.Amount, moneyPlaces)
	row[7] = string(rec.Kind)
	return row
}

// formatDecimal renders at least places decimals and never fewer than the
// value was printed with, so a unit price of 1,235 stays 1.235
func formatDecimal(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return ""
	}
	if scale := -d.Decimal.Exponent(); scale > places {
		places = scale
	}
	return d.Decimal.StringFixed(places)
}
