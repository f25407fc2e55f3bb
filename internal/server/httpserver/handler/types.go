package handler

import (
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
)

// Error codes produced by the API layer itself.
const (
	CodeOK         = "OK"
	CodeBadRequest = "SM-API-4000"
	CodeInternal   = "SM-SYS-5000"
)

// Response is the standard API response envelope. /metrics is the only
// endpoint that does not use it.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      CodeOK,
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	service.Status
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ChannelResponse is one channel table entry.
type ChannelResponse struct {
	ID   int    `json:"id"`
	Addr string `json:"addr"`
}

// ListChannelsResponse is the body of GET /v1/channels.
type ListChannelsResponse struct {
	Channels []ChannelResponse `json:"channels"`
	Total    int               `json:"total"`
}

// AddChannelRequest is the body of POST /v1/channels.
type AddChannelRequest struct {
	Addr string `json:"addr"`
}

// RemoveChannelResponse is the body of DELETE /v1/channels/{id}.
type RemoveChannelResponse struct {
	ID      int  `json:"id"`
	Removed bool `json:"removed"`
}

// HostsResponse is the body of GET /v1/hosts.
type HostsResponse struct {
	Enabled bool             `json:"enabled"`
	Hosts   []discovery.Host `json:"hosts"`
}
