package adapters

import (
	"encoding/json"
	"time"
)

// Hit represents a queued analytics hit waiting for local dispatch.
type Hit struct {
	ID       string `json:"id"`
	Payload  Record `json:"payload"`
	IssuedAt int64  `json:"issuedAt"`
}

// ContainerSource reports where a loaded container came from.
type ContainerSource string

const (
	SourceNetwork ContainerSource = "network"
	SourceDefault ContainerSource = "default"
)

// Container is an opaque, loaded tag-management container.
// Raw holds the container body as delivered; its format is not interpreted.
type Container struct {
	ID       string          `json:"id"`
	Version  string          `json:"version"`
	Source   ContainerSource `json:"source"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	LoadedAt time.Time       `json:"loadedAt"`
}
