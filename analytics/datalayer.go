package analytics

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DataLayer receives records pushed by the page. Every push is merged into
// the data-layer model and queued as a hit for local dispatch.
type DataLayer struct {
	mu       sync.RWMutex
	model    map[string]any
	enqueuer func(Hit) error
}

// NewDataLayer creates a data layer that hands hits to enqueue.
func NewDataLayer(enqueue func(Hit) error) *DataLayer {
	return &DataLayer{
		model:    make(map[string]any),
		enqueuer: enqueue,
	}
}

// Push merges record into the model and queues it as a hit.
// An empty record is queued as-is.
func (l *DataLayer) Push(record Record) error {
	l.mu.Lock()
	mergeRecord(l.model, record)
	l.mu.Unlock()

	if l.enqueuer == nil {
		return nil
	}
	return l.enqueuer(Hit{
		ID:       uuid.NewString(),
		Payload:  record.Clone(),
		IssuedAt: time.Now().UnixMilli(),
	})
}

// Model returns a copy of the top level of the model.
func (l *DataLayer) Model() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]any, len(l.model))
	for k, v := range l.model {
		out[k] = v
	}
	return out
}

// Clear removes every key from the model.
func (l *DataLayer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = make(map[string]any)
}

// String renders the model as {key=value, ...} with keys sorted.
func (l *DataLayer) String() string {
	return formatModel(l.Model())
}

// mergeRecord copies record into dst. Nested records merge key by key
// instead of replacing the existing value.
func mergeRecord(dst map[string]any, record Record) {
	record.Range(func(key string, value any) bool {
		if nested, ok := value.(Record); ok {
			sub, ok := dst[key].(map[string]any)
			if !ok {
				sub = make(map[string]any, nested.Len())
			}
			mergeRecord(sub, nested)
			dst[key] = sub
			return true
		}
		dst[key] = value
		return true
	})
}

func formatModel(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		if sub, ok := m[k].(map[string]any); ok {
			b.WriteString(formatModel(sub))
		} else {
			fmt.Fprint(&b, m[k])
		}
	}
	b.WriteByte('}')
	return b.String()
}
