package lineitem

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kind is the category of a parsed receipt line
type Kind string

const (
	KindUnitPriced       Kind = "unit-priced"
	KindWeightPriced     Kind = "weight-priced"
	KindDiscount         Kind = "discount"
	KindQuantityDiscount Kind = "quantity-discount"
)

const (
	// UnknownDate is used when no "DD/MM/YYYY HH:MM" stamp appears on the receipt
	UnknownDate = "unknown"

	// NoArticleCode marks records that do not come from a priced catalog line
	NoArticleCode = "0000"

	discountFallbackDescription = "korting op vorig artikel"
	quantityDiscountDescription = "hoeveelheidsvoordeel verrekend in prijs"
)

// Record is one purchase-related fact extracted from one receipt line.
// Optional fields are nil / invalid unless the record's Kind carries them.
type Record struct {
	Date        string              `json:"Date"`
	ArticleCode string              `json:"ArticleCode"`
	Description string              `json:"Description"`
	Quantity    *int                `json:"Quantity"`
	WeightKg    decimal.NullDecimal `json:"WeightKg"`
	UnitPrice   decimal.NullDecimal `json:"UnitPrice"`
	Amount      decimal.NullDecimal `json:"Amount"`
	Kind        Kind                `json:"Kind"`
}

// MarshalJSON writes the decimal fields as JSON numbers with the scale they
// were printed with, or null when absent
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string          `json:"Date"`
		ArticleCode string          `json:"ArticleCode"`
		Description string          `json:"Description"`
		Quantity    *int            `json:"Quantity"`
		WeightKg    json.RawMessage `json:"WeightKg"`
		UnitPrice   json.RawMessage `json:"UnitPrice"`
		Amount      json.RawMessage `json:"Amount"`
		Kind        Kind            `json:"Kind"`
	}{
		Date:        r.Date,
		ArticleCode: r.ArticleCode,
		Description: r.Description,
		Quantity:    r.Quantity,
		WeightKg:    decimalNumber(r.WeightKg),
		UnitPrice:   decimalNumber(r.UnitPrice),
		Amount:      decimalNumber(r.Amount),
		Kind:        r.Kind,
	})
}

func decimalNumber(d decimal.NullDecimal) json.RawMessage {
	if !d.Valid {
		return json.RawMessage("null")
	}
	places := int32(0)
	if exp := d.Decimal.Exponent(); exp < 0 {
		places = -exp
	}
	return json.RawMessage(d.Decimal.StringFixed(places))
}
