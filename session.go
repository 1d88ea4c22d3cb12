package tagmanager

import (
	"context"
	"sync"
)

// Session is the state shared by a Plugin and its asynchronous container
// load: whether the session is initialized and which container is current.
//
// Every transition goes through the session's mutex. Each initGTM starts a
// new generation; results from older generations are discarded.
type Session struct {
	mu          sync.Mutex
	inited      bool
	holder      *ContainerHolder
	gen         uint64
	pending     bool
	cancel      context.CancelFunc
	containerID string
	lastErr     error
	changed     chan struct{}
}

// SessionSnapshot is a read-only projection of the session.
type SessionSnapshot struct {
	Inited           bool   `json:"inited"`
	Pending          bool   `json:"pending"`
	ContainerID      string `json:"containerId,omitempty"`
	ContainerVersion string `json:"containerVersion,omitempty"`
	ContainerSource  string `json:"containerSource,omitempty"`
	LastError        string `json:"lastError,omitempty"`
}

// NewSession creates a session that is not initialized and holds no container.
func NewSession() *Session {
	return &Session{
		holder:  NewContainerHolder(),
		changed: make(chan struct{}),
	}
}

// Ready reports whether a container has been loaded and exitGTM was not called since.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inited
}

// Container returns the current container, which may be nil.
func (s *Session) Container() *Container {
	return s.holder.Get()
}

// Holder exposes the container holder.
func (s *Session) Holder() *ContainerHolder {
	return s.holder
}

// LastError returns the error of the most recent failed load or refresh.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	snap := SessionSnapshot{
		Inited:      s.inited,
		Pending:     s.pending,
		ContainerID: s.containerID,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()

	if c := s.holder.Get(); c != nil {
		snap.ContainerVersion = c.Version
		snap.ContainerSource = string(c.Source)
	}
	return snap
}

// WaitReady blocks until the session is initialized, the pending load fails,
// or ctx is done. It returns nil once ready, the load error if no load is
// pending any more, or ctx.Err().
func (s *Session) WaitReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inited {
			s.mu.Unlock()
			return nil
		}
		if !s.pending && s.lastErr != nil {
			err := s.lastErr
			s.mu.Unlock()
			return err
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notifyLocked wakes every WaitReady caller. s.mu must be held.
func (s *Session) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// begin starts a new load generation, canceling the pending one if any.
func (s *Session) begin(containerID string, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.pending = true
	s.cancel = cancel
	s.containerID = containerID
	s.lastErr = nil
	s.notifyLocked()
	return s.gen
}

// apply installs the loaded container and marks the session initialized.
// It reports false when gen is no longer current.
func (s *Session) apply(gen uint64, c *Container) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.holder.Set(c)
	s.inited = true
	s.pending = false
	s.cancel = nil
	s.lastErr = nil
	s.notifyLocked()
	return true
}

// refreshed replaces the container after a successful refresh of gen.
func (s *Session) refreshed(gen uint64, c *Container) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.inited {
		return false
	}
	s.holder.Set(c)
	return true
}

// fail records a load or refresh error for gen.
func (s *Session) fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.pending = false
	s.cancel = nil
	s.lastErr = err
	s.notifyLocked()
	return true
}

// noteError records a refresh error for gen without changing readiness.
func (s *Session) noteError(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.lastErr = err
	s.notifyLocked()
	return true
}

// exit marks the session not initialized and abandons a pending load.
// The held container is kept.
func (s *Session) exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.inited = false
	s.pending = false
	s.notifyLocked()
}
