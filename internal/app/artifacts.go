package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names written under Config.OutDir.
const (
	SearchFile   = "out.json"
	ArticlesFile = "articles.json"
	ManifestFile = "manifest.json"
	ResponseFile = "response.json"
	PDFFile      = "articles.pdf"
)

const jsonIndent = "    "

// writeJSON encodes v with a four-space indent and without HTML escaping, so
// non-ASCII text and markup characters stay readable.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}

// writeRawJSON pretty-prints an upstream payload keeping its key order. A
// payload that is not JSON is written unchanged.
func writeRawJSON(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", jsonIndent); err != nil {
		return writeFile(path, raw)
	}
	buf.WriteByte('\n')
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
