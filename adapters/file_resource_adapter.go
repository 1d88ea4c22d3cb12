package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileResourceAdapter opens default containers stored as <dir>/<name>.json.
type FileResourceAdapter struct {
	dir string
}

// Ensure FileResourceAdapter implements ResourceAdapter interface
var _ ResourceAdapter = (*FileResourceAdapter)(nil)

// NewFileResourceAdapter creates a resource adapter reading from dir.
func NewFileResourceAdapter(dir string) *FileResourceAdapter {
	return &FileResourceAdapter{dir: dir}
}

// Open reads the named default container. Missing files map to ErrContainerNotFound.
func (f *FileResourceAdapter) Open(name string) (*Container, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid resource name %q", name)
	}
	path := filepath.Join(f.dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: resource %s", ErrContainerNotFound, name)
		}
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("resource %s is not valid JSON", name)
	}
	var version string
	if st, err := os.Stat(path); err == nil {
		version = "default-" + st.ModTime().UTC().Format("20060102150405")
	}
	return &Container{
		Version:  version,
		Source:   SourceDefault,
		Raw:      json.RawMessage(data),
		LoadedAt: time.Now(),
	}, nil
}
