package analytics

import (
	"fmt"
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
)

// Re-export adapter types for convenience
type (
	Hit              = adapters.Hit
	Record           = adapters.Record
	Container        = adapters.Container
	HTTPAdapter      = adapters.HTTPAdapter
	HTTPResponse     = adapters.HTTPResponse
	StorageAdapter   = adapters.StorageAdapter
	LoggerAdapter    = adapters.LoggerAdapter
	ContainerAdapter = adapters.ContainerAdapter
	ResourceAdapter  = adapters.ResourceAdapter
)

// HTTPError reports a non-2xx response from the collection endpoint.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d", e.Status)
}

// IsClientError reports whether the response status was 4xx.
func (e *HTTPError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// Config configures the bundled analytics client.
type Config struct {
	APIKey string
	// APIKeyHeader defaults to X-API-Key.
	APIKeyHeader string
	// Endpoint receives batches of hits.
	Endpoint string
	// DispatchPeriod is the initial local dispatch period; zero disables
	// periodic dispatch until SetLocalDispatchPeriod is called.
	DispatchPeriod       time.Duration
	MaxBatchSize         int
	MaxRetries           int
	RetryInitialInterval time.Duration

	HTTPAdapter      HTTPAdapter
	StorageAdapter   StorageAdapter
	LoggerAdapter    LoggerAdapter
	ContainerAdapter ContainerAdapter
	ResourceAdapter  ResourceAdapter
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Endpoint             string
	FlushInterval        time.Duration
	MaxBatchSize         int
	MaxRetries           int
	RetryInitialInterval time.Duration
}
