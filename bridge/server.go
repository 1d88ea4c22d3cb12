package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is what the bridge forwards calls to. *tagmanager.Plugin satisfies it.
type Service interface {
	Execute(ctx context.Context, action string, args []any, respond tagmanager.Callback) bool
	Session() *tagmanager.Session
}

// Options configures a Server.
type Options struct {
	// AllowedOrigins restricts CORS and websocket origins. Empty allows the
	// request host and loopback origins only.
	AllowedOrigins []string
	// MaxBodyBytes bounds /exec bodies and websocket messages. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Server exposes a Service over websocket and HTTP.
type Server struct {
	svc            Service
	maxBodyBytes   int64
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	corsOrigins    []string
	upgrader       websocket.Upgrader
}

// NewServer creates a bridge server for svc.
func NewServer(svc Service, opts Options) *Server {
	s := &Server{
		svc:            svc,
		maxBodyBytes:   opts.MaxBodyBytes,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = 1 << 20
	}
	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.corsOrigins = append(s.corsOrigins, trimmed)
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/ws", s.handleWS)
	r.Post("/exec", s.handleExec)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Session().Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not initialized"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.svc.Session().Snapshot()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Action == "" {
		writeJSONError(w, http.StatusBadRequest, errMissingAction.Error())
		return
	}

	resp := s.execute(r.Context(), req)
	log := requestLogger(r)
	log.Debug().Str("action", req.Action).Str("status", resp.Status).Msg("exec")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("failed to write exec response")
	}
}

// execute runs one request and returns its single response.
func (s *Server) execute(ctx context.Context, req Request) Response {
	if req.CallbackID == "" {
		req.CallbackID = uuid.NewString()
	}
	resp := Response{CallbackID: req.CallbackID}

	args, err := DecodeArgs(req.Args)
	if err != nil {
		resp.Status = StatusError
		resp.Message = "invalid arguments: " + err.Error()
		return resp
	}

	start := time.Now()
	handled := s.svc.Execute(ctx, req.Action, args, func(r tagmanager.Result) {
		resp.Message = r.Message
		if r.OK {
			resp.Status = StatusOK
		} else {
			resp.Status = StatusError
		}
	})
	if !handled {
		resp.Status = StatusInvalidAction
		resp.Message = "invalid action: " + req.Action
	}
	zlog.Debug().
		Str("callbackId", resp.CallbackID).
		Str("action", req.Action).
		Str("status", resp.Status).
		Dur("dur", time.Since(start)).
		Msg("bridge call")
	return resp
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] || s.allowedOrigins["*"] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Hostname()
	return parsed.Host == r.Host || host == "localhost" || host == "127.0.0.1" || host == "::1"
}
