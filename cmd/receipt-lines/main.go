package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/receipt-lines/internal/extraction"
	"github.com/zombor/receipt-lines/internal/lineitem"
	"github.com/zombor/receipt-lines/internal/receipt"
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

	fs := ff.NewFlagSet("receipt-lines")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		extractorType = fs.StringLong("extractor", "fitz", "Text extractor: 'fitz' or 'pdf'")
		vision        = fs.BoolLong("vision", "Transcribe scans and photos with a vision model when no text layer is found")
		visionBackend = fs.StringLong("vision-backend", "gemini", "Vision backend: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		keepSign      = fs.BoolLong("keep-discount-sign", "Emit discount amounts with the sign printed on the receipt")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
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

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize text extractor based on type
	var extractor extraction.Extractor
	switch *extractorType {
	case "fitz":
		slog.Info("Initializing MuPDF text extractor...")
		extractor = extraction.NewFitz()
	case "pdf":
		slog.Info("Initializing pure Go PDF text extractor...")
		extractor = extraction.NewPDF()
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "fitz or pdf")
		os.Exit(1)
	}
	defer extractor.Close()

	// Vision transcription is only used for documents without a text layer
	var fallback extraction.Extractor
	if *vision {
		switch *visionBackend {
		case "gemini":
			apiKey := *geminiKey
			if apiKey == "" {
				apiKey = os.Getenv("GEMINI_API_KEY")
			}
			if apiKey == "" {
				slog.Error("Gemini API key is required with --vision. Set --gemini-key flag or GEMINI_API_KEY environment variable")
				os.Exit(1)
			}
			slog.Info("Initializing Gemini transcription...", "model", *geminiModel)
			gemini, err := extraction.NewGemini(apiKey, *geminiModel)
			if err != nil {
				slog.Error("Failed to initialize Gemini", "error", err)
				os.Exit(1)
			}
			defer gemini.Close()
			fallback = gemini
		case "ollama":
			slog.Info("Initializing Ollama transcription...", "url", *ollamaURL, "model", *ollamaModel)
			ollama, err := extraction.NewOllama(*ollamaURL, *ollamaModel)
			if err != nil {
				slog.Error("Failed to initialize Ollama", "error", err)
				os.Exit(1)
			}
			defer ollama.Close()
			fallback = ollama
		default:
			slog.Error("Invalid vision backend", "backend", *visionBackend, "valid", "gemini or ollama")
			os.Exit(1)
		}
	}

	options := lineitem.DefaultOptions()
	options.NegateDiscounts = !*keepSign

	// Initialize service
	receiptService := receipt.NewService(extractor, fallback, options)

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}
