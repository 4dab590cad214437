package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/hyperifyio/altscout/internal/batch"
)

// manifestEntry is a compact record of one processed image.
type manifestEntry struct {
	Index         int    `json:"index"`
	URL           string `json:"url"`
	Website       string `json:"website,omitempty"`
	ContextSHA256 string `json:"context_sha256"`
	ContextChars  int    `json:"context_chars"`
	Success       bool   `json:"success"`
}

// manifestMeta captures run details that help reproduce an export.
type manifestMeta struct {
	Version     string    `json:"version"`
	Mode        string    `json:"mode"`
	Targets     []string  `json:"targets"`
	Model       string    `json:"model"`
	LLMBaseURL  string    `json:"llm_base_url"`
	Format      string    `json:"format"`
	ImageCount  int       `json:"image_count"`
	Succeeded   int       `json:"succeeded"`
	HTTPCache   bool      `json:"http_cache"`
	LLMCache    bool      `json:"llm_cache"`
	DryRun      bool      `json:"dry_run"`
	GeneratedAt time.Time `json:"generated_at"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// buildManifestEntries digests the exact context each image was described with.
func buildManifestEntries(results []batch.Result) []manifestEntry {
	out := make([]manifestEntry, 0, len(results))
	for i, r := range results {
		content := strings.TrimSpace(r.Context)
		out = append(out, manifestEntry{
			Index:         i + 1,
			URL:           strings.TrimSpace(r.URL),
			Website:       r.SourceWebsite,
			ContextSHA256: computeSHA256Hex(content),
			ContextChars:  len([]rune(content)),
			Success:       r.Success,
		})
	}
	return out
}

func countSucceeded(results []batch.Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// marshalManifestJSON encodes a machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta   manifestMeta    `json:"meta"`
		Images []manifestEntry `json:"images"`
	}{Meta: meta, Images: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// deriveManifestSidecarPath returns a sidecar JSON path next to the export.
func deriveManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}
