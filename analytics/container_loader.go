package analytics

import (
	"context"
	"errors"
	"fmt"

	tagmanager "github.com/Tap30/tagmanager-go"
)

var errNoContainerSource = errors.New("no container endpoint configured")

// ContainerLoader resolves containers, preferring the remote service and
// falling back to the bundled default resource.
type ContainerLoader struct {
	remote        ContainerAdapter
	resources     ResourceAdapter
	loggerAdapter LoggerAdapter
}

// NewContainerLoader creates a loader. Either adapter may be nil.
func NewContainerLoader(remote ContainerAdapter, resources ResourceAdapter, logger LoggerAdapter) *ContainerLoader {
	return &ContainerLoader{remote: remote, resources: resources, loggerAdapter: logger}
}

// Load fetches containerID from the service within ctx. When the fetch fails
// or ctx expires first, the default resource is opened instead.
func (l *ContainerLoader) Load(ctx context.Context, containerID, defaultResource string) (*Container, error) {
	remoteErr := errNoContainerSource
	if l.remote != nil {
		c, err := l.remote.Fetch(ctx, containerID)
		if err == nil {
			return c, nil
		}
		remoteErr = err
		l.loggerAdapter.Warn("Remote container %s unavailable: %v", containerID, err)
	}

	if l.resources == nil || defaultResource == "" {
		return nil, remoteErr
	}
	c, err := l.resources.Open(defaultResource)
	if err != nil {
		return nil, errors.Join(remoteErr, fmt.Errorf("default container %s: %w", defaultResource, err))
	}
	c.ID = containerID
	l.loggerAdapter.Info("Using default container %s for %s", defaultResource, containerID)
	return c, nil
}

// Refresh fetches the latest published container from the service.
func (l *ContainerLoader) Refresh(ctx context.Context, containerID string) (*Container, error) {
	if l.remote == nil {
		return nil, tagmanager.ErrRefreshUnavailable
	}
	return l.remote.Fetch(ctx, containerID)
}
