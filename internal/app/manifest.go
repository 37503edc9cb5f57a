package app

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/lo"

	"github.com/hyperifyio/finweb/internal/fetch"
)

// manifestEntry ties one position of articles.json back to its URL.
type manifestEntry struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	SHA256 string `json:"sha256"`
	Chars  int    `json:"chars"`
}

// manifestMeta captures high-level run details that aid reproducibility.
type manifestMeta struct {
	RunID        string    `json:"run_id"`
	Source       string    `json:"source"`
	Version      string    `json:"version"`
	ArticleCount int       `json:"article_count"`
	Forwarded    bool      `json:"forwarded"`
	Model        string    `json:"model,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type manifest struct {
	Meta     manifestMeta    `json:"meta"`
	Articles []manifestEntry `json:"articles"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// buildManifestEntries pairs each extracted text with the fetch it came from.
// results and texts share indices.
func buildManifestEntries(results []fetch.Result, texts []string) []manifestEntry {
	return lo.Map(texts, func(text string, i int) manifestEntry {
		e := manifestEntry{
			Index:  i,
			SHA256: computeSHA256Hex(text),
			Chars:  len([]rune(text)),
		}
		if i < len(results) {
			e.URL = results[i].URL
			e.Status = results[i].StatusCode
		}
		return e
	})
}
