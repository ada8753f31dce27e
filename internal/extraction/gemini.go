package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// pageTimeout bounds one transcription request
const pageTimeout = 30 * time.Second

// Gemini transcribes scanned receipts and photos with Google Gemini.
// It is used when a document has no text layer.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini extractor
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	var temperature float32 = 0
	model.Temperature = &temperature

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractLines renders each page to PNG and asks the model for a verbatim transcription
func (g *Gemini) ExtractLines(ctx context.Context, data []byte, contentType string) ([]string, error) {
	pages, err := renderPages(data, contentType)
	if err != nil {
		return nil, err
	}

	var lines []string
	for n, page := range pages {
		text, err := g.transcribe(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("transcribing page %d: %w", n+1, err)
		}
		pageLines := parseTranscript(text)
		slog.Debug("Transcribed page", "page", n+1, "lines", len(pageLines))
		lines = append(lines, pageLines...)
	}

	return lines, nil
}

func (g *Gemini) transcribe(ctx context.Context, pngData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	// genai.ImageData expects the format suffix ("png"), not the MIME type
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(transcriptionPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
