// Package output writes measurement documents to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"influxjson/internal/domain"
)

// DefaultDir is where documents go when no directory is configured.
const DefaultDir = "data_json"

// JSONWriter writes one pretty-printed JSON array per measurement into Dir.
type JSONWriter struct {
	Dir string
}

// NewJSONWriter writes into dir, or DefaultDir when dir is empty.
func NewJSONWriter(dir string) *JSONWriter {
	if dir == "" {
		dir = DefaultDir
	}
	return &JSONWriter{Dir: dir}
}

// FileName maps a measurement name to its document file name.
// Spaces become underscores; nothing else is altered.
func FileName(measurement string) string {
	return strings.ReplaceAll(measurement, " ", "_") + ".json"
}

// Path is the document path for measurement.
func (w *JSONWriter) Path(measurement string) string {
	return filepath.Join(w.Dir, FileName(measurement))
}

// Prepare creates the output directory. Safe to call repeatedly.
func (w *JSONWriter) Prepare() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// Write replaces the document for measurement. The file is written to a
// temporary name in the same directory and renamed into place.
func (w *JSONWriter) Write(measurement string, records []domain.Record) (string, error) {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", measurement, err)
	}
	data = append(data, '\n')

	path := w.Path(measurement)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}
	return path, nil
}
