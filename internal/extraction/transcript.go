package extraction

import (
	"strings"
)

// parseTranscript turns a model transcription into receipt lines.
// Models sometimes wrap the answer in markdown fences despite the prompt.
func parseTranscript(text string) []string {
	text = strings.TrimSpace(text)

	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```plaintext")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.Trim(text, "\r\n")

	if strings.TrimSpace(text) == "" {
		return nil
	}
	return splitLines(text)
}
