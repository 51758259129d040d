package jsondb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File handles storage of a single JSON document of type T.
//
// File performs no locking of its own; callers mutating the document must
// hold a [Lock] for the whole load-modify-save sequence.
type File[T any] struct {
	path string
}

// NewFile creates a File for path, creating its parent directory.
//
// The document itself is not created until the first Save.
func NewFile[T any](path string) (*File[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &File[T]{path: path}, nil
}

// Path returns the path of the document.
func (f *File[T]) Path() string {
	return f.path
}

// Load reads and decodes the document.
//
// When the file does not exist, Load returns a zero T and exists=false without
// creating the file. A file that exists but does not decode yields a
// *CorruptError; the file is left untouched.
func (f *File[T]) Load() (doc *T, exists bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return new(T), false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, true, &CorruptError{Path: f.path, Err: errors.New("empty file")}
	}
	doc = new(T)
	d := json.NewDecoder(bytes.NewReader(data))
	if err := d.Decode(doc); err != nil {
		return nil, true, &CorruptError{Path: f.path, Err: err}
	}
	if d.More() {
		return nil, true, &CorruptError{Path: f.path, Err: errors.New("trailing data after document")}
	}
	return doc, true, nil
}

// Save encodes doc and atomically replaces the file with it.
//
// The document is written to a temporary file in the same directory, synced,
// then renamed over the target.
func (f *File[T]) Save(doc *T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	data = append(data, '\n')

	dir, base := filepath.Split(f.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write document: %w", err), tmp.Close(), os.Remove(tmpPath))
	}
	if err := tmp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync document: %w", err), tmp.Close(), os.Remove(tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // G302: data file is shared with other local tools
		return errors.Join(fmt.Errorf("failed to chmod temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename document to final location: %w", err), os.Remove(tmpPath))
	}
	return nil
}
