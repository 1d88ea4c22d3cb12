package bridge

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the bridge layer. It discards by default.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the bridge layer.
func SetLogger(l zerolog.Logger) { zlog = l }

func requestLogger(r *http.Request) zerolog.Logger {
	ctx := zlog.With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ctx = ctx.Str("request_id", rid)
	}
	return ctx.Logger()
}
