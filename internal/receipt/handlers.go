package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-lines/internal/export"
	"github.com/zombor/receipt-lines/internal/extraction"
)

// maxUploadSize bounds the multipart form; receipt PDFs and photos are far smaller
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleHealth answers liveness checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// handleParseRecords parses an uploaded receipt and returns its records,
// as a JSON array or as CSV when format=csv is requested
func (s *Server) handleParseRecords(w http.ResponseWriter, r *http.Request) {
	result, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	w.Header().Set("X-Parse-ID", result.ID)

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvFilename(result.Filename)))
		if err := export.WriteCSV(w, result.Records); err != nil {
			slog.Error("Error writing CSV", "id", result.ID, "error", err)
		}
		return
	}

	writeJSON(w, result.Records)
}

// handleParseResult parses an uploaded receipt and returns the full result envelope
func (s *Server) handleParseResult(w http.ResponseWriter, r *http.Request) {
	result, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	w.Header().Set("X-Parse-ID", result.ID)
	writeJSON(w, result)
}

// parseUpload reads the "file" form field and runs it through the service.
// It writes the error response itself and reports whether the caller should continue.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*ParseResult, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		// Anything that is not a readable multipart upload carries no document
		slog.Warn("Error parsing multipart form", "error", err)
		jsonError(w, "no file", http.StatusBadRequest)
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "no file", http.StatusBadRequest)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return nil, false
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	result, err := s.service.ParseDocument(r.Context(), header.Filename, data, contentType)
	if err != nil {
		writeParseError(w, err)
		return nil, false
	}
	return result, true
}

// writeParseError maps service errors to HTTP statuses
func writeParseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoDocument):
		jsonError(w, "no file", http.StatusBadRequest)
	case errors.Is(err, extraction.ErrUnsupportedContent):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, extraction.ErrUnreadableDocument):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, "Error extracting receipt text", http.StatusBadGateway)
	}
}

// detectContentType prefers the part's declared type and falls back to the file extension
func detectContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// csvFilename derives the download name from the uploaded file's name
func csvFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "receipt"
	}
	return base + ".csv"
}
