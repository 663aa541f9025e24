package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// DefaultPrefix is the file name prefix of generated reports
const DefaultPrefix = "duplicates"

// Kind identifies the content of a snapshot document
type Kind string

const (
	KindUnknown  Kind = ""
	KindMatches  Kind = "matches"
	KindGroups   Kind = "groups"
	KindRecords  Kind = "records"
	KindOutcomes Kind = "outcomes"
	KindEmpty    Kind = "empty"
)

// DefaultFileName returns prefix_YYYYMMDD_HHMMSS.ext for the given time
func DefaultFileName(prefix string, now time.Time, ext string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ext == "" {
		ext = "json"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), ext)
}

// WriteJSON encodes v as an indented UTF-8 JSON document.
// Non-ASCII names are written as is. A nil result slice is written as [].
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(emptyIfNil(v)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

// emptyIfNil replaces nil document slices so they encode as an empty array
func emptyIfNil(v any) any {
	switch x := v.(type) {
	case []domain.DuplicateGroup:
		if x == nil {
			return []domain.DuplicateGroup{}
		}
	case []domain.DuplicateMatch:
		if x == nil {
			return []domain.DuplicateMatch{}
		}
	case []domain.FileRecord:
		if x == nil {
			return []domain.FileRecord{}
		}
	case []domain.Outcome:
		if x == nil {
			return []domain.Outcome{}
		}
	}
	return v
}

// SaveJSON writes v to path atomically.
// The document is written to a temporary file in the same directory and
// renamed into place, so a failed write never leaves a truncated file.
func SaveJSON(path string, v any) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}

	tmp, err := os.CreateTemp(dir, ".dupfinder-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	tempPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %w", domain.ErrSerialization, writeErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %w", domain.ErrSerialization, closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

// ReadMatches decodes a cross-tree document
func ReadMatches(r io.Reader) ([]domain.DuplicateMatch, error) {
	var matches []domain.DuplicateMatch
	if err := decode(r, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// ReadGroups decodes a single-tree document
func ReadGroups(r io.Reader) ([]domain.DuplicateGroup, error) {
	var groups []domain.DuplicateGroup
	if err := decode(r, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ReadRecords decodes a list of scanned records
func ReadRecords(r io.Reader) ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	if err := decode(r, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadOutcomes decodes the outcomes of an action batch
func ReadOutcomes(r io.Reader) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	if err := decode(r, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// LoadMatches reads a cross-tree document from path
func LoadMatches(path string) ([]domain.DuplicateMatch, error) {
	return load(path, ReadMatches)
}

// LoadGroups reads a single-tree document from path
func LoadGroups(path string) ([]domain.DuplicateGroup, error) {
	return load(path, ReadGroups)
}

// LoadRecords reads a record list from path
func LoadRecords(path string) ([]domain.FileRecord, error) {
	return load(path, ReadRecords)
}

// LoadOutcomes reads batch outcomes from path
func LoadOutcomes(path string) ([]domain.Outcome, error) {
	return load(path, ReadOutcomes)
}

// DetectKind inspects the first element of the document at path
func DetectKind(path string) (Kind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return KindUnknown, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	if len(items) == 0 {
		return KindEmpty, nil
	}

	first := items[0]
	switch {
	case has(first, "compare_path"):
		return KindMatches, nil
	case has(first, "original"):
		return KindGroups, nil
	case has(first, "path") && has(first, "digest"):
		return KindRecords, nil
	case has(first, "path") && has(first, "action"):
		return KindOutcomes, nil
	}
	return KindUnknown, fmt.Errorf("%w: unrecognized document", domain.ErrSerialization)
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

func load[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	defer f.Close()
	return read(f)
}
