package tagmanager

import (
	"context"
	"time"
)

// SDK is the analytics/tag-management service the plugin forwards to.
// The analytics package provides the bundled implementation.
type SDK interface {
	// SetLocalDispatchPeriod sets how often queued hits are flushed, in seconds.
	SetLocalDispatchPeriod(seconds int) error
	// LoadContainer resolves a container, preferring a remote one and falling
	// back to the named default resource. It must honor ctx's deadline.
	LoadContainer(ctx context.Context, containerID, defaultResource string) (*Container, error)
	// RefreshContainer fetches the latest published container.
	RefreshContainer(ctx context.Context, containerID string) (*Container, error)
	// Push hands a record to the data layer.
	Push(record Record) error
	// DataLayerString describes the current data-layer model.
	DataLayerString() string
	// DispatchLocalHits flushes queued hits now.
	DispatchLocalHits() error
}

// Outcome labels the result of a command or load for observers.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeError          Outcome = "error"
	OutcomeNotInitialized Outcome = "not_initialized"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeCanceled       Outcome = "canceled"
)

// Observer receives plugin activity, typically for metrics.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	CommandHandled(action Action, outcome Outcome)
	ContainerLoaded(outcome Outcome, elapsed time.Duration)
	ContainerRefreshed(outcome Outcome)
}

type noopObserver struct{}

func (noopObserver) CommandHandled(Action, Outcome)         {}
func (noopObserver) ContainerLoaded(Outcome, time.Duration) {}
func (noopObserver) ContainerRefreshed(Outcome)             {}
