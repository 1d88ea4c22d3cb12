package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPContainerAdapter fetches containers from <baseURL>/containers/<id>.
// The response body is kept verbatim; the ETag header, when present, is
// used as the container version.
type HTTPContainerAdapter struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Ensure HTTPContainerAdapter implements ContainerAdapter interface
var _ ContainerAdapter = (*HTTPContainerAdapter)(nil)

// NewHTTPContainerAdapter creates an adapter rooted at baseURL.
func NewHTTPContainerAdapter(baseURL string, headers map[string]string) *HTTPContainerAdapter {
	return &HTTPContainerAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		headers: headers,
	}
}

// Fetch downloads the container. A 404 maps to ErrContainerNotFound.
func (h *HTTPContainerAdapter) Fetch(ctx context.Context, containerID string) (*Container, error) {
	endpoint := h.baseURL + "/containers/" + url.PathEscape(containerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch container: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch container: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read container: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("container %s is not valid JSON", containerID)
	}

	return &Container{
		ID:       containerID,
		Version:  strings.Trim(resp.Header.Get("ETag"), `"`),
		Source:   SourceNetwork,
		Raw:      json.RawMessage(body),
		LoadedAt: time.Now(),
	}, nil
}
