package bridge

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tagmanager",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Total number of bridge HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tagmanager",
			Subsystem: "bridge",
			Name:      "request_duration_seconds",
			Help:      "Duration of bridge HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tagmanager",
			Name:      "commands_total",
			Help:      "Commands handled by the plugin",
		},
		[]string{"action", "outcome"},
	)

	containerLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tagmanager",
			Name:      "container_loads_total",
			Help:      "Container loads started by initGTM",
		},
		[]string{"outcome"},
	)

	containerLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tagmanager",
			Name:      "container_load_duration_seconds",
			Help:      "Time until a container load completed or gave up",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
	)

	containerRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tagmanager",
			Name:      "container_refreshes_total",
			Help:      "Container refreshes issued after a load",
		},
		[]string{"outcome"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tagmanager",
			Name:      "ws_connections",
			Help:      "Open bridge websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		commandsTotal,
		containerLoadsTotal,
		containerLoadDuration,
		containerRefreshesTotal,
		wsConnections,
	)
}

// Metrics records plugin activity in Prometheus.
type Metrics struct{}

var _ tagmanager.Observer = (*Metrics)(nil)

// NewMetrics returns an observer backed by the package collectors.
func NewMetrics() *Metrics { return &Metrics{} }

func (*Metrics) CommandHandled(action tagmanager.Action, outcome tagmanager.Outcome) {
	commandsTotal.WithLabelValues(string(action), string(outcome)).Inc()
}

func (*Metrics) ContainerLoaded(outcome tagmanager.Outcome, elapsed time.Duration) {
	containerLoadsTotal.WithLabelValues(string(outcome)).Inc()
	containerLoadDuration.Observe(elapsed.Seconds())
}

func (*Metrics) ContainerRefreshed(outcome tagmanager.Outcome) {
	containerRefreshesTotal.WithLabelValues(string(outcome)).Inc()
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		// the route pattern is only known once chi has routed the request
		path := routePatternOrPath(r)
		status := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
