package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// StatusProvider reports the running session.
type StatusProvider interface {
	Status() service.Status
}

// ChannelRegistry is the transport's channel table.
type ChannelRegistry interface {
	Channels() []domain.PeerChannel
	RegisterChannel(addr netip.AddrPort) (int, error)
	UnregisterChannel(id int) error
}

// HostLister reports hosts seen by LAN discovery.
type HostLister interface {
	Hosts() []discovery.Host
}

// Deps are the handler's collaborators. Discovery may be nil.
type Deps struct {
	Session   StatusProvider
	Channels  ChannelRegistry
	Discovery HostLister
	Logger    *slog.Logger
}

// Handler serves the admin API.
type Handler struct {
	session   StatusProvider
	channels  ChannelRegistry
	discovery HostLister
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New creates a Handler.
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &Handler{
		session:   deps.Session,
		channels:  deps.Channels,
		discovery: deps.Discovery,
		logger:    deps.Logger,
		mux:       http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)

	h.mux.HandleFunc("GET /v1/status", h.handleStatus)
	h.mux.HandleFunc("GET /v1/version", h.handleVersion)
	h.mux.HandleFunc("GET /v1/hosts", h.handleHosts)

	h.mux.HandleFunc("GET /v1/channels", h.handleListChannels)
	h.mux.HandleFunc("POST /v1/channels", h.handleAddChannel)
	h.mux.HandleFunc("DELETE /v1/channels/{id}", h.handleRemoveChannel)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message))
}

// handleServiceError converts domain errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if code := domain.ErrorCode(err); code != "" {
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}
	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case code == domain.ErrChannel.Code:
		return http.StatusNotFound
	case code == domain.ErrChannelTableFull.Code:
		return http.StatusConflict
	case strings.HasPrefix(code, "SM-ARG-"), code == domain.ErrResolution.Code:
		return http.StatusBadRequest
	case code == domain.ErrTransportClosed.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
