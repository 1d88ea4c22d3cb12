package adapters

// StorageAdapter is an interface for hit persistence between runs.
// Implement this interface to use custom storage backends.
type StorageAdapter interface {
	// Save persists hits to storage, replacing what was stored before.
	Save(hits []Hit) error

	// Load retrieves persisted hits from storage.
	Load() ([]Hit, error)

	// Clear removes all persisted hits from storage.
	Clear() error
}
