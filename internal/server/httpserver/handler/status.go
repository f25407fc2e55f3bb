package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
)

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.session.Status()
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:  st,
		Uptime:  time.Since(st.StartedAt).Round(time.Second).String(),
		Version: buildinfo.Get().Version,
	})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, buildinfo.Get())
}

func (h *Handler) handleHosts(w http.ResponseWriter, r *http.Request) {
	resp := HostsResponse{Hosts: []discovery.Host{}}
	if h.discovery != nil {
		resp.Enabled = true
		if hosts := h.discovery.Hosts(); hosts != nil {
			resp.Hosts = hosts
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
