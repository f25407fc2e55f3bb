package handler

import (
	"encoding/json"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

const maxRequestBody = 4 << 10

func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	chans := h.channels.Channels()
	resp := ListChannelsResponse{Channels: make([]ChannelResponse, 0, len(chans)), Total: len(chans)}
	for _, c := range chans {
		resp.Channels = append(resp.Channels, ChannelResponse{ID: c.ID, Addr: c.String()})
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleAddChannel(w http.ResponseWriter, r *http.Request) {
	var req AddChannelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	addr, err := netip.ParseAddrPort(req.Addr)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "addr must be ip:port")
		return
	}

	id, err := h.channels.RegisterChannel(addr)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Info("channel registered via admin API", "channel", id, "addr", addr.String())
	h.writeJSON(w, r, http.StatusCreated, ChannelResponse{ID: id, Addr: addr.String()})
}

func (h *Handler) handleRemoveChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "channel id must be an integer")
		return
	}
	if id == domain.ServerChannel {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("the server channel cannot be removed"))
		return
	}

	if err := h.channels.UnregisterChannel(id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Info("channel unregistered via admin API", "channel", id)
	h.writeJSON(w, r, http.StatusOK, RemoveChannelResponse{ID: id, Removed: true})
}
