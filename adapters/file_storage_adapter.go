package adapters

import (
	"encoding/json"
	"errors"
	"os"
)

// FileStorageAdapter stores pending hits as JSON in a single file.
type FileStorageAdapter struct {
	filepath string
}

// Ensure FileStorageAdapter implements StorageAdapter interface
var _ StorageAdapter = (*FileStorageAdapter)(nil)

// NewFileStorageAdapter creates a new FileStorageAdapter instance.
//
// Parameters:
//   - filepath: Path to the file where hits will be stored
func NewFileStorageAdapter(filepath string) *FileStorageAdapter {
	return &FileStorageAdapter{filepath: filepath}
}

// Save persists hits to a JSON file.
func (f *FileStorageAdapter) Save(hits []Hit) error {
	data, err := json.Marshal(hits)
	if err != nil {
		return err
	}
	return os.WriteFile(f.filepath, data, 0o644)
}

// Load retrieves hits from a JSON file.
// Returns an empty slice if the file doesn't exist.
func (f *FileStorageAdapter) Load() ([]Hit, error) {
	data, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Hit{}, nil
		}
		return nil, err
	}
	var hits []Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Clear removes the storage file. A missing file is not an error.
func (f *FileStorageAdapter) Clear() error {
	if err := os.Remove(f.filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
