package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/snapmesh-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	handler.Deps

	// Metrics serves GET /metrics. Nil disables the endpoint.
	Metrics http.Handler

	// AllowList restricts clients by IP or CIDR. Empty admits everyone.
	AllowList []string

	// RateLimit is the per-client request rate; 0 disables limiting.
	RateLimit int
}

// NewRouter builds the admin API with its middleware chain:
// Recover, RequestID, AccessLog, NetworkACL, RateLimit, then the handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
		cfg.Deps.Logger = log
	}
	h := handler.New(cfg.Deps)

	mux := http.NewServeMux()
	mux.Handle("/", h)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	middlewares := []Middleware{
		Recover(log),
		RequestID(),
		AccessLog(log),
		NetworkACL(cfg.AllowList, log),
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit, cfg.RateLimit))
	}
	return Chain(mux, middlewares...)
}
