package adapters

// NoOpStorageAdapter is a storage adapter that performs no operations.
// Useful when pending hits should not survive a restart.
type NoOpStorageAdapter struct{}

// Ensure NoOpStorageAdapter implements StorageAdapter interface
var _ StorageAdapter = (*NoOpStorageAdapter)(nil)

// NewNoOpStorageAdapter creates a new NoOpStorageAdapter instance.
func NewNoOpStorageAdapter() *NoOpStorageAdapter {
	return &NoOpStorageAdapter{}
}

// Save does nothing and always returns nil.
func (n *NoOpStorageAdapter) Save(hits []Hit) error {
	return nil
}

// Load returns an empty slice and nil error.
func (n *NoOpStorageAdapter) Load() ([]Hit, error) {
	return []Hit{}, nil
}

// Clear does nothing and always returns nil.
func (n *NoOpStorageAdapter) Clear() error {
	return nil
}
