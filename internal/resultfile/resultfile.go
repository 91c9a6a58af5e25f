package resultfile

import (
	"boatrace-results/internal/collect"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoRecords is returned by Save when there is nothing to write, no file is created.
var ErrNoRecords = errors.New("no records to save")

// FileName is the name of the document holding the results of `date`.
func FileName(date string) string {
	return fmt.Sprintf("race_results_%s.json", date)
}

// Marshal renders records as indented UTF-8 JSON, non-ASCII and HTML characters are kept literal.
func Marshal(records []collect.ResultRecord) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(records)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Save writes the results of `date` to FileName(date) under `dir` and returns the path written.
// The document is written to a temporary file first and renamed into place.
func Save(dir, date string, records []collect.ResultRecord) (string, error) {
	if len(records) == 0 {
		return "", ErrNoRecords
	}

	contents, err := Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	path := filepath.Join(dir, FileName(date))
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s.*", FileName(date)))
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return "", err
	}
	err = tmp.Close()
	if err != nil {
		return "", err
	}
	err = os.Chmod(tmpPath, 0644)
	if err != nil {
		return "", err
	}
	err = os.Rename(tmpPath, path)
	if err != nil {
		return "", err
	}

	return path, nil
}

// Read parses a document written by Save.
func Read(path string) ([]collect.ResultRecord, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []collect.ResultRecord
	err = json.Unmarshal(contents, &records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
