package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists knowledge documents as a JSON array in one file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed document store. An empty path disables
// persistence.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the stored documents. A missing file is not an error. Entries
// with an empty field after trimming are skipped.
func (f *FileStore) Load(_ context.Context) ([]Document, error) {
	if f.path == "" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var raw []Document
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	docs := make([]Document, 0, len(raw))
	for _, d := range raw {
		d = trimDocument(d)
		if d.ID == "" || d.Title == "" || d.Source == "" || d.Content == "" {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Save replaces the file contents with docs.
func (f *FileStore) Save(_ context.Context, docs []Document) error {
	if f.path == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	if docs == nil {
		docs = []Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func trimDocument(d Document) Document {
	return Document{
		ID:      strings.TrimSpace(d.ID),
		Title:   strings.TrimSpace(d.Title),
		Source:  strings.TrimSpace(d.Source),
		Content: strings.TrimSpace(d.Content),
	}
}
