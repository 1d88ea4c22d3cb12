package adapters

import "context"

// HTTPResponse represents the response from an HTTP request.
type HTTPResponse struct {
	OK     bool
	Status int
}

// HTTPAdapter is an interface for delivering hits to a collection endpoint.
// Implement this interface to use custom HTTP clients.
type HTTPAdapter interface {
	// Send hits to the specified endpoint.
	//
	// Parameters:
	//   - ctx: Bounds the request
	//   - endpoint: The collection endpoint URL
	//   - hits: Hits to send
	//   - headers: Optional custom headers to merge with defaults
	//
	// Returns HTTP response or error.
	Send(ctx context.Context, endpoint string, hits []Hit, headers map[string]string) (*HTTPResponse, error)
}
