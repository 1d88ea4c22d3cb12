package adapters

import (
	"context"
	"errors"
)

// ErrContainerNotFound is returned when neither the remote service nor the
// local resources know the requested container.
var ErrContainerNotFound = errors.New("container not found")

// ContainerAdapter fetches the latest published version of a container
// from the tag-management service.
type ContainerAdapter interface {
	Fetch(ctx context.Context, containerID string) (*Container, error)
}

// ResourceAdapter opens a default container bundled with the application.
type ResourceAdapter interface {
	Open(name string) (*Container, error)
}
