package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/receipt-lines/internal/export"
	"github.com/zombor/receipt-lines/internal/extraction"
	"github.com/zombor/receipt-lines/internal/lineitem"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-csv")
	var (
		extractorType = fs.StringLong("extractor", "fitz", "Text extractor: 'fitz' or 'pdf'")
		outPath       = fs.StringLong("out", "", "Output CSV path (default: stdout)")
		keepSign      = fs.BoolLong("keep-discount-sign", "Emit discount amounts with the sign printed on the receipt")
		_             = fs.StringLong("config", "", "Config file path (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_LINES"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "usage: receipt-csv [flags] receipt.pdf...\n\n%s\n", ffhelp.Flags(fs))
		os.Exit(1)
	}

	var extractor extraction.Extractor
	switch *extractorType {
	case "fitz":
		extractor = extraction.NewFitz()
	case "pdf":
		extractor = extraction.NewPDF()
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "fitz or pdf")
		os.Exit(1)
	}
	defer extractor.Close()

	options := lineitem.DefaultOptions()
	options.NegateDiscounts = !*keepSign

	records, err := convert(context.Background(), extractor, options, files)
	if err != nil {
		slog.Error("Conversion failed", "error", err)
		os.Exit(1)
	}

	if *outPath == "" {
		if err := export.WriteCSV(os.Stdout, records); err != nil {
			slog.Error("Failed to write CSV", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := export.WriteCSVFile(*outPath, records); err != nil {
		slog.Error("Failed to write CSV", "error", err)
		os.Exit(1)
	}
	slog.Info("Wrote CSV", "path", *outPath, "records", len(records), "files", len(files))
}

// convert parses every file in order and concatenates their records.
// Each file is parsed independently, so discounts never attach across receipts.
func convert(ctx context.Context, extractor extraction.Extractor, options lineitem.Options, files []string) ([]lineitem.Record, error) {
	records := []lineitem.Record{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		lines, err := extractor.ExtractLines(ctx, data, contentTypeFor(path))
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", path, err)
		}

		parsed := lineitem.Parse(lines, options)
		if len(parsed) == 0 {
			slog.Warn("No line items found", "file", path, "lines", len(lines))
		}
		records = append(records, parsed...)
	}
	return records, nil
}

func contentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "application/pdf"
	}
	return ""
}
