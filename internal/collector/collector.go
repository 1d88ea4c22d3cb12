// Package collector is a development stand-in for the tag-management
// service: it accepts hit batches and serves published containers.
package collector

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/Tap30/tagmanager-go/adapters"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HitsPayload is the body posted to /hits.
type HitsPayload struct {
	Hits []adapters.Hit `json:"hits"`
}

type container struct {
	version string
	body    json.RawMessage
}

// Options configures a Collector.
type Options struct {
	// APIKey, when set, must be sent in the X-API-Key header.
	APIKey string
	Logger zerolog.Logger
}

// Collector records received hits in memory.
type Collector struct {
	apiKey string
	log    zerolog.Logger

	mu         sync.Mutex
	batches    [][]adapters.Hit
	containers map[string]container
}

// New creates an empty collector.
func New(opts Options) *Collector {
	return &Collector{
		apiKey:     opts.APIKey,
		log:        opts.Logger,
		containers: make(map[string]container),
	}
}

// PublishContainer makes body available under id with the given version.
func (c *Collector) PublishContainer(id, version string, body json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[id] = container{version: version, body: body}
}

// Hits returns every hit received so far, in arrival order.
func (c *Collector) Hits() []adapters.Hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []adapters.Hit
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

// Batches returns the number of accepted batches.
func (c *Collector) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// Handler returns the collector's routes.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(c.authorize)

	r.Post("/hits", c.handleHits)
	r.Get("/containers/{id}", c.handleContainer)
	return r
}

func (c *Collector) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.apiKey != "" && r.Header.Get("X-API-Key") != c.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Collector) handleHits(w http.ResponseWriter, r *http.Request) {
	var payload HitsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.log.Warn().Err(err).Msg("invalid hits payload")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON"})
		return
	}

	// a hit carrying trigger_error=true simulates a server failure so that
	// clients exercise their retry path
	for _, hit := range payload.Hits {
		if v, ok := hit.Payload.Get("trigger_error"); ok && v == true {
			c.log.Info().Str("hit", hit.ID).Msg("simulated server error")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Simulated server error"})
			return
		}
	}

	c.mu.Lock()
	c.batches = append(c.batches, payload.Hits)
	c.mu.Unlock()

	c.log.Info().Int("hits", len(payload.Hits)).Msg("batch received")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"received": len(payload.Hits),
	})
}

func (c *Collector) handleContainer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c.mu.Lock()
	ct, ok := c.containers[id]
	c.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "container not found"})
		return
	}
	if ct.version != "" {
		w.Header().Set("ETag", strconv.Quote(ct.version))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(ct.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
