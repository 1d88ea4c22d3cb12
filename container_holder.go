package tagmanager

import "sync/atomic"

// ContainerHolder keeps the most recently loaded container. Replacement is a
// single pointer swap, so readers see either the old or the new container.
type ContainerHolder struct {
	ptr atomic.Pointer[Container]
}

// NewContainerHolder creates an empty holder.
func NewContainerHolder() *ContainerHolder {
	return &ContainerHolder{}
}

// Set replaces the held container.
func (h *ContainerHolder) Set(c *Container) {
	h.ptr.Store(c)
}

// Get returns the held container, or nil when none was loaded yet.
func (h *ContainerHolder) Get() *Container {
	return h.ptr.Load()
}
