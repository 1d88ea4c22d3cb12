package tagmanager

import (
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
)

// Re-export adapter types for convenience
type (
	Record        = adapters.Record
	Container     = adapters.Container
	LoggerAdapter = adapters.LoggerAdapter
	LogLevel      = adapters.LogLevel
)

// NewRecord builds a record from alternating key/value pairs.
func NewRecord(kv ...any) Record { return adapters.NewRecord(kv...) }

// DefaultLoadTimeout bounds how long initGTM waits for a container.
const DefaultLoadTimeout = 2000 * time.Millisecond

// PluginConfig configures a Plugin.
type PluginConfig struct {
	// SDK performs every side effect. Required.
	SDK SDK
	// Session holds the container state. A fresh session is created when nil.
	Session *Session
	// LoadTimeout bounds the asynchronous container load. Defaults to DefaultLoadTimeout.
	LoadTimeout time.Duration
	// RefreshTimeout bounds the refresh issued after a container becomes available.
	// Defaults to LoadTimeout.
	RefreshTimeout time.Duration
	LoggerAdapter  LoggerAdapter
	Observer       Observer
}
