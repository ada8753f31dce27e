package lineitem

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReceiptDate", func() {
	It("should take the date of the first date-time stamp", func() {
		lines := []string{"Some header 01/02/2023 14:05 more text"}
		Expect(ReceiptDate(lines)).To(Equal("01/02/2023"))
	})

	It("should ignore later stamps", func() {
		lines := []string{"Kassa 3", "05/06/2024 09:12", "Retour 07/06/2024 10:00"}
		Expect(ReceiptDate(lines)).To(Equal("05/06/2024"))
	})

	It("should not accept a date without a time", func() {
		lines := []string{"Geldig tot 31/12/2024"}
		Expect(ReceiptDate(lines)).To(Equal(UnknownDate))
	})

	It("should accept a no-break space between date and time", func() {
		lines := []string{"Kassa 3 01/02/2023\u00a014:05"}
		Expect(ReceiptDate(lines)).To(Equal("01/02/2023"))
	})

	It("should fall back to unknown for an empty document", func() {
		Expect(ReceiptDate(nil)).To(Equal(UnknownDate))
	})
})

var _ = Describe("Parse", func() {
	var (
		lines   []string
		opts    Options
		records []Record
	)

	BeforeEach(func() {
		opts = DefaultOptions()
	})

	JustBeforeEach(func() {
		records = Parse(lines, opts)
	})

	When("the document is the reference receipt", func() {
		BeforeEach(func() {
			lines = []string{
				"A 1234 Bread 2 2,50 5,00",
				"Korting bon Bread 1,00",
				"Hoeveelheidsvoordeel toegekend: € 0,50 (in prijs verrekend)",
			}
		})

		It("should emit three records in line order", func() {
			Expect(records).To(HaveLen(3))
			Expect(records[0].Kind).To(Equal(KindUnitPriced))
			Expect(records[1].Kind).To(Equal(KindDiscount))
			Expect(records[2].Kind).To(Equal(KindQuantityDiscount))
		})

		It("should extract the unit-priced item", func() {
			item := records[0]
			Expect(item.ArticleCode).To(Equal("1234"))
			Expect(item.Description).To(Equal("Bread"))
			Expect(item.Quantity).NotTo(BeNil())
			Expect(*item.Quantity).To(Equal(2))
			Expect(item.UnitPrice).To(beDecimal("2.50"))
			Expect(item.Amount).To(beDecimal("5.00"))
			Expect(item.WeightKg).To(beAbsent())
		})

		It("should attribute the discount to the bread", func() {
			discount := records[1]
			Expect(discount.ArticleCode).To(Equal("1234"))
			Expect(discount.Description).To(Equal("Bread"))
			Expect(discount.Amount).To(beDecimal("-1.00"))
			Expect(discount.Quantity).To(BeNil())
			Expect(discount.UnitPrice).To(beAbsent())
			Expect(discount.WeightKg).To(beAbsent())
		})

		It("should record the quantity advantage as a reduction", func() {
			note := records[2]
			Expect(note.ArticleCode).To(Equal(NoArticleCode))
			Expect(note.Description).To(Equal("hoeveelheidsvoordeel verrekend in prijs"))
			Expect(note.Amount).To(beDecimal("-0.50"))
		})

		It("should stamp every record with the unknown date", func() {
			for _, r := range records {
				Expect(r.Date).To(Equal(UnknownDate))
			}
		})
	})

	When("the receipt carries a date-time stamp", func() {
		BeforeEach(func() {
			lines = []string{
				"Filiaal 042",
				"A 1234 Bread 2 2,50 5,00",
				"B 77 Melk 1 1,09 1,09",
				"Datum: 14/03/2024 18:22",
			}
		})

		It("should use the document date on every record", func() {
			Expect(records).To(HaveLen(2))
			for _, r := range records {
				Expect(r.Date).To(Equal("14/03/2024"))
			}
		})
	})

	When("parsing a weighted item", func() {
		BeforeEach(func() {
			lines = []string{"B 4711 Bananen   Chiquita 1,235kg 1,99 2,46"}
		})

		It("should populate weight and price per kilogram", func() {
			Expect(records).To(HaveLen(1))
			item := records[0]
			Expect(item.Kind).To(Equal(KindWeightPriced))
			Expect(item.ArticleCode).To(Equal("4711"))
			Expect(item.Description).To(Equal("Bananen Chiquita"))
			Expect(item.WeightKg).To(beDecimal("1.235"))
			Expect(item.UnitPrice).To(beDecimal("1.99"))
			Expect(item.Amount).To(beDecimal("2.46"))
		})

		It("should leave quantity unset", func() {
			Expect(records[0].Quantity).To(BeNil())
		})
	})

	When("a weighted item is printed with a negative total", func() {
		BeforeEach(func() {
			lines = []string{"B 4711 Bananen 0,500kg 2,00 -1,00"}
		})

		It("should preserve the printed sign", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Amount).To(beDecimal("-1.00"))
		})
	})

	When("a discount follows a weighted item", func() {
		BeforeEach(func() {
			lines = []string{
				"B 4711 Bananen 1,000kg 1,99 1,99",
				"Korting bon bananen 0,50",
			}
		})

		It("should attribute the discount to the weighted item", func() {
			Expect(records).To(HaveLen(2))
			Expect(records[1].ArticleCode).To(Equal("4711"))
			Expect(records[1].Description).To(Equal("Bananen"))
		})
	})

	When("a discount has no preceding item", func() {
		BeforeEach(func() {
			lines = []string{"Korting bon weekactie 1,00"}
		})

		It("should use the generic description and code", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Description).To(Equal("korting op vorig artikel"))
			Expect(records[0].ArticleCode).To(Equal(NoArticleCode))
			Expect(records[0].Amount).To(beDecimal("-1.00"))
		})
	})

	When("a discount is already printed negative", func() {
		BeforeEach(func() {
			lines = []string{"KORTING BON Bread -1,25"}
		})

		It("should leave the amount as printed", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Amount).To(beDecimal("-1.25"))
		})
	})

	When("discount sign correction is disabled", func() {
		BeforeEach(func() {
			opts = Options{NegateDiscounts: false}
			lines = []string{
				"A 1234 Bread 2 2,50 5,00",
				"Korting bon Bread 1,00",
				"Hoeveelheidsvoordeel toegekend: € 0,50 (in prijs verrekend)",
			}
		})

		It("should keep the discount sign as printed", func() {
			Expect(records[1].Amount).To(beDecimal("1.00"))
		})

		It("should still negate the quantity advantage", func() {
			Expect(records[2].Amount).To(beDecimal("-0.50"))
		})
	})

	When("several discounts follow one item", func() {
		BeforeEach(func() {
			lines = []string{
				"A 1234 Bread 2 2,50 5,00",
				"Korting bon Bread 1,00",
				"Hoeveelheidsvoordeel toegekend: € 0,20 (in prijs verrekend)",
				"Korting bon extra 0,25",
			}
		})

		It("should attribute each discount to the item, never to a discount", func() {
			Expect(records).To(HaveLen(4))
			Expect(records[3].Kind).To(Equal(KindDiscount))
			Expect(records[3].ArticleCode).To(Equal("1234"))
			Expect(records[3].Description).To(Equal("Bread"))
		})
	})

	When("the discount refers to the most recent of several items", func() {
		BeforeEach(func() {
			lines = []string{
				"A 1234 Bread 2 2,50 5,00",
				"B 88 Kaas jong belegen 1 4,99 4,99",
				"Korting bon kaas 1,50",
			}
		})

		It("should use the last tracked item", func() {
			Expect(records[2].ArticleCode).To(Equal("88"))
			Expect(records[2].Description).To(Equal("Kaas jong belegen"))
		})
	})

	When("the document is empty", func() {
		BeforeEach(func() {
			lines = nil
		})

		It("should return an empty, non-nil sequence", func() {
			Expect(records).NotTo(BeNil())
			Expect(records).To(BeEmpty())
		})
	})

	When("blank lines and layout noise sit between an item and its discount", func() {
		BeforeEach(func() {
			lines = []string{
				"   ",
				"A 1234 Bread 2 2,50 5,00",
				"",
				"\t",
				"SUBTOTAAL 5,00",
				"Korting bon Bread 1,00",
			}
		})

		It("should emit only the item and the discount", func() {
			Expect(records).To(HaveLen(2))
		})

		It("should keep the tracked item", func() {
			Expect(records[1].ArticleCode).To(Equal("1234"))
		})
	})

	When("lines carry surrounding whitespace", func() {
		BeforeEach(func() {
			lines = []string{"    A 1234   Bread   2 2,50 5,00   "}
		})

		It("should trim before matching and normalize the description", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Description).To(Equal("Bread"))
		})
	})

	When("columns are separated by no-break spaces", func() {
		BeforeEach(func() {
			lines = []string{
				"A\u00a01234\u00a0Bread\u00a0roll\u00a02\u00a02,50\u00a05,00",
				"B 4711 Kaas\u00a00,250kg\u20071,99 0,50",
				"Korting bon\u00a0Bread\u00a01,00",
			}
		})

		It("should match them like ordinary spaces", func() {
			Expect(records).To(HaveLen(3))
			Expect(records[0].Kind).To(Equal(KindUnitPriced))
			Expect(records[0].Description).To(Equal("Bread roll"))
			Expect(*records[0].Quantity).To(Equal(2))
			Expect(records[1].Kind).To(Equal(KindWeightPriced))
			Expect(records[1].WeightKg).To(beDecimal("0.250"))
			Expect(records[2].Kind).To(Equal(KindDiscount))
			Expect(records[2].Description).To(Equal("Kaas"))
		})
	})

	When("a quantity does not fit an int", func() {
		var logs bytes.Buffer

		BeforeEach(func() {
			lines = []string{"A 1234 Bread 99999999999999999999 2,50 5,00"}

			logs.Reset()
			previous := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
			DeferCleanup(func() { slog.SetDefault(previous) })
		})

		It("should keep the line with the quantity unset", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Quantity).To(BeNil())
			Expect(records[0].Amount).To(beDecimal("5.00"))
		})

		It("should log the dropped quantity", func() {
			Expect(logs.String()).To(ContainSubstring("Quantity out of range"))
			Expect(logs.String()).To(ContainSubstring("99999999999999999999"))
		})
	})

	When("the quantity advantage note is embedded in other text", func() {
		BeforeEach(func() {
			lines = []string{"*** hoeveelheidsvoordeel toegekend: €1,10 (in prijs verrekend) ***"}
		})

		It("should still be found", func() {
			Expect(records).To(HaveLen(1))
			Expect(records[0].Amount).To(beDecimal("-1.10"))
		})
	})

	When("serializing records", func() {
		BeforeEach(func() {
			lines = []string{"Korting bon Bread 1,00"}
		})

		It("should emit explicit nulls for fields the kind does not carry", func() {
			data, err := json.Marshal(records[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"Quantity":null`))
			Expect(string(data)).To(ContainSubstring(`"WeightKg":null`))
			Expect(string(data)).To(ContainSubstring(`"UnitPrice":null`))
			Expect(string(data)).To(ContainSubstring(`"Kind":"discount"`))
		})

		It("should emit amounts as JSON numbers with their printed decimals", func() {
			data, err := json.Marshal(records[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"Amount":-1.00`))
		})

		It("should read its own encoding back", func() {
			item := Parse([]string{"B 4711 Gehakt 0,500kg 8,995 4,50"}, DefaultOptions())[0]
			data, err := json.Marshal(item)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"WeightKg":0.500,"UnitPrice":8.995,"Amount":4.50`))

			var decoded Record
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())
			Expect(decoded.UnitPrice).To(beDecimal("8.995"))
			Expect(decoded.Quantity).To(BeNil())
			Expect(decoded.Kind).To(Equal(KindWeightPriced))
		})
	})

	Describe("independent calls", func() {
		It("should not carry the tracked item from one document to the next", func() {
			first := Parse([]string{"A 1234 Bread 2 2,50 5,00"}, DefaultOptions())
			Expect(first).To(HaveLen(1))

			second := Parse([]string{"Korting bon Bread 1,00"}, DefaultOptions())
			Expect(second).To(HaveLen(1))
			Expect(second[0].ArticleCode).To(Equal(NoArticleCode))
		})

		It("should not interfere when run concurrently", func() {
			var wg sync.WaitGroup
			results := make([][]Record, 20)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					doc := []string{"Korting bon Bread 1,00"}
					if i%2 == 0 {
						doc = append([]string{"A 1234 Bread 2 2,50 5,00"}, doc...)
					}
					results[i] = Parse(doc, Options{NegateDiscounts: i%2 == 0})
				}(i)
			}
			wg.Wait()

			for i, recs := range results {
				last := recs[len(recs)-1]
				if i%2 == 0 {
					Expect(last.ArticleCode).To(Equal("1234"))
					Expect(last.Amount).To(beDecimal("-1.00"))
				} else {
					Expect(last.ArticleCode).To(Equal(NoArticleCode))
					Expect(last.Amount).To(beDecimal("1.00"))
				}
			}
		})
	})
})

var _ = Describe("ParseReceipt", func() {
	It("should report the date stamped on the records", func() {
		receipt := ParseReceipt([]string{
			"Kassa 3 14/03/2024 18:42",
			"A 1234 Bread 2 2,50 5,00",
		}, DefaultOptions())
		Expect(receipt.Date).To(Equal("14/03/2024"))
		Expect(receipt.Records).To(HaveLen(1))
		Expect(receipt.Records[0].Date).To(Equal(receipt.Date))
	})

	It("should report the date of a receipt without items", func() {
		receipt := ParseReceipt([]string{"Kassa 3 14/03/2024 18:42", "TOTAAL 0,00"}, DefaultOptions())
		Expect(receipt.Date).To(Equal("14/03/2024"))
		Expect(receipt.Records).NotTo(BeNil())
		Expect(receipt.Records).To(BeEmpty())
	})

	It("should agree with Parse", func() {
		lines := []string{"A 1234 Bread 2 2,50 5,00", "Korting bon Bread 1,00"}
		Expect(ParseReceipt(lines, DefaultOptions()).Records).To(Equal(Parse(lines, DefaultOptions())))
	})
})

var _ = Describe("classify", func() {
	DescribeTable("rule priority",
		func(line string, matched bool, kind Kind) {
			out := classify(line, lineContext{date: UnknownDate, opts: DefaultOptions()})
			Expect(out.matched).To(Equal(matched))
			if kind != "" {
				Expect(out.record).NotTo(BeNil())
				Expect(out.record.Kind).To(Equal(kind))
			}
		},
		Entry("weighted beats regular", "C 12 Gehakt 0,512kg 8,99 4,60", true, KindWeightPriced),
		Entry("regular item", "C 12 Gehakt 1 4,60 4,60", true, KindUnitPriced),
		Entry("lowercase category letter", "c 12 Gehakt 1 4,60 4,60", false, Kind("")),
		Entry("discount", "Korting bon Gehakt 0,50", true, KindDiscount),
		Entry("quantity advantage", "Hoeveelheidsvoordeel toegekend: € 0,50 (in prijs verrekend)", true, KindQuantityDiscount),
		Entry("total line", "TOTAAL 12,34", false, Kind("")),
		Entry("item without total", "A 1234 Bread 2 2,50", false, Kind("")),
		Entry("no-break spaces in a regular item", "A\u00a01234\u00a0Bread\u00a02\u00a02,50\u00a05,00", true, KindUnitPriced),
		Entry("narrow no-break space before a discount total", "Korting bon Bread\u202f1,00", true, KindDiscount),
	)

	It("should claim an unconvertible quantity advantage without a record", func() {
		m := submatches{
			pattern: quantityAdvantagePattern,
			values:  []string{"", ""},
		}
		out := extractQuantityAdvantage(m, lineContext{})
		Expect(out.matched).To(BeTrue())
		Expect(out.record).To(BeNil())
	})

	It("should mark item rules as tracking and discount rules as not", func() {
		lc := lineContext{date: UnknownDate, opts: DefaultOptions()}
		Expect(classify("A 1234 Bread 2 2,50 5,00", lc).tracks).To(BeTrue())
		Expect(classify("Korting bon Bread 1,00", lc).tracks).To(BeFalse())
	})
})
