package lineitem

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// spaced compiles pattern with \s widened to Unicode space separators, so
// columns padded with no-break spaces still match
func spaced(pattern string) *regexp.Regexp {
	return regexp.MustCompile(strings.ReplaceAll(pattern, `\s`, `[\s\p{Zs}]`))
}

// Receipt line shapes. Item lines start with a one-letter category (VAT group)
// followed by the article number.
var (
	// A 4711 BANANEN 1,235kg 1,99 2,46
	weightedPattern = spaced(
		`^[A-Z]\s+(?P<art>\d+)\s+(?P<name>.*?)\s+(?P<weight>\d+,\d{2,3})kg\s+(?P<perkg>\d+,\d{2,3})\s+(?P<total>-?\d+,\d{2})$`,
	)
	// A 1234 BROOD 2 2,50 5,00
	regularPattern = spaced(
		`^[A-Z]\s+(?P<art>\d+)\s+(?P<name>.*?)\s+(?P<qty>\d+)\s+(?P<unit>\d+,\d{2,3})\s+(?P<total>-?\d+,\d{2})$`,
	)
	// Korting bon BROOD 1,00
	discountPattern = spaced(
		`(?i)^Korting bon[ \t\p{Zs}]*(?P<ref>.*\S)\s+(?P<total>-?\d+,\d{2})$`,
	)
	// Hoeveelheidsvoordeel toegekend: € 0,50 (in prijs verrekend)
	quantityAdvantagePattern = spaced(
		`(?i)Hoeveelheidsvoordeel\s+toegekend:\s*€\s*(?P<amount>\d+,\d{2})\s*\(in\s+prijs\s+verrekend\)`,
	)
)

// trackedItem is the last catalog line seen, the referent of a following discount
type trackedItem struct {
	name string
	code string
}

// lineContext is everything a rule may read besides the line itself
type lineContext struct {
	date string
	last trackedItem
	opts Options
}

// outcome is the result of applying one rule to one line.
// A matched line may still produce no record.
type outcome struct {
	matched bool
	record  *Record
	tracks  bool
}

var noMatch = outcome{}

// rule pairs a line shape with the extractor building a record from its submatches
type rule struct {
	pattern *regexp.Regexp
	extract func(m submatches, lc lineContext) outcome
}

// rules are tried in order; the first matching rule claims the line.
// Weighted items come before regular ones: both share the "letter code name"
// prefix but only weighted lines carry the kg marker.
var rules = []rule{
	{pattern: weightedPattern, extract: extractWeighted},
	{pattern: regularPattern, extract: extractRegular},
	{pattern: discountPattern, extract: extractDiscount},
	{pattern: quantityAdvantagePattern, extract: extractQuantityAdvantage},
}

// classify runs the rule table against a trimmed, non-empty line
func classify(line string, lc lineContext) outcome {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return r.extract(submatches{pattern: r.pattern, values: m}, lc)
	}
	return noMatch
}

type submatches struct {
	pattern *regexp.Regexp
	values  []string
}

func (s submatches) get(name string) string {
	i := s.pattern.SubexpIndex(name)
	if i < 0 || i >= len(s.values) {
		return ""
	}
	return s.values[i]
}

func extractWeighted(m submatches, lc lineContext) outcome {
	rec := &Record{
		Date:        lc.date,
		ArticleCode: m.get("art"),
		Description: CleanSpace(m.get("name")),
		WeightKg:    ParseEuro(m.get("weight")),
		UnitPrice:   ParseEuro(m.get("perkg")),
		Amount:      ParseEuro(m.get("total")),
		Kind:        KindWeightPriced,
	}
	return outcome{matched: true, record: rec, tracks: true}
}

func extractRegular(m submatches, lc lineContext) outcome {
	rec := &Record{
		Date:        lc.date,
		ArticleCode: m.get("art"),
		Description: CleanSpace(m.get("name")),
		UnitPrice:   ParseEuro(m.get("unit")),
		Amount:      ParseEuro(m.get("total")),
		Kind:        KindUnitPriced,
	}
	qty, err := strconv.Atoi(m.get("qty"))
	if err != nil {
		slog.Debug("Quantity out of range, leaving it unset", "article", rec.ArticleCode, "quantity", m.get("qty"), "error", err)
	} else {
		rec.Quantity = &qty
	}
	return outcome{matched: true, record: rec, tracks: true}
}

// extractDiscount attributes the discount to the last tracked item; the
// reference printed on the discount line itself is not used.
func extractDiscount(m submatches, lc lineContext) outcome {
	amount := ParseEuro(m.get("total"))
	if lc.opts.NegateDiscounts && amount.Valid && amount.Decimal.IsPositive() {
		amount.Decimal = amount.Decimal.Neg()
	}

	description := lc.last.name
	if description == "" {
		description = discountFallbackDescription
	}
	code := lc.last.code
	if code == "" {
		code = NoArticleCode
	}

	rec := &Record{
		Date:        lc.date,
		ArticleCode: code,
		Description: description,
		Amount:      amount,
		Kind:        KindDiscount,
	}
	return outcome{matched: true, record: rec}
}

// extractQuantityAdvantage always negates: the note reports a reduction
// already folded into an earlier price.
func extractQuantityAdvantage(m submatches, lc lineContext) outcome {
	amount := ParseEuro(m.get("amount"))
	if !amount.Valid {
		return outcome{matched: true}
	}
	amount.Decimal = amount.Decimal.Neg()

	rec := &Record{
		Date:        lc.date,
		ArticleCode: NoArticleCode,
		Description: quantityDiscountDescription,
		Amount:      amount,
		Kind:        KindQuantityDiscount,
	}
	return outcome{matched: true, record: rec}
}
