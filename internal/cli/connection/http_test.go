package connection

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:5080", "http://localhost:5080"},
		{"with https prefix", "https://localhost:5080", "https://localhost:5080"},
		{"without prefix", "localhost:5080", "http://localhost:5080"},
		{"trailing slash", "localhost:5080/", "http://localhost:5080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHTTPClient(tt.server).BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Methods(t *testing.T) {
	type seen struct {
		method, path, contentType, userAgent, body string
	}
	var got seen
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.Path, r.Header.Get("Content-Type"), r.Header.Get("User-Agent"), string(body)}
		w.Write([]byte(`{"code":"OK","message":"Success"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*http.Response, error)
		want seen
	}{
		{
			name: "get",
			call: func() (*http.Response, error) { return client.Get(ctx, "/v1/status") },
			want: seen{method: http.MethodGet, path: "/v1/status"},
		},
		{
			name: "post",
			call: func() (*http.Response, error) {
				return client.Post(ctx, "/v1/channels", map[string]string{"addr": "10.0.0.2:5030"})
			},
			want: seen{method: http.MethodPost, path: "/v1/channels", contentType: "application/json", body: `{"addr":"10.0.0.2:5030"}`},
		},
		{
			name: "delete",
			call: func() (*http.Response, error) { return client.Delete(ctx, "/v1/channels/3") },
			want: seen{method: http.MethodDelete, path: "/v1/channels/3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if err := ParseResponse(resp, nil); err != nil {
				t.Fatalf("ParseResponse: %v", err)
			}
			if !strings.HasPrefix(got.userAgent, "snapmesh-cli/") {
				t.Errorf("User-Agent = %q", got.userAgent)
			}
			got.userAgent = ""
			if got != tt.want {
				t.Errorf("server saw %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := NewHTTPClient(url).Get(context.Background(), "/health"); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func respond(t *testing.T, status int, body string) *http.Response {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("http.Get: %v", err)
	}
	return resp
}

func TestParseResponse_UnwrapsData(t *testing.T) {
	resp := respond(t, http.StatusOK, `{"code":"OK","message":"Success","data":{"tick":35,"synced":true}}`)

	var target struct {
		Tick   uint32 `json:"tick"`
		Synced bool   `json:"synced"`
	}
	if err := ParseResponse(resp, &target); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if target.Tick != 35 || !target.Synced {
		t.Errorf("target = %+v", target)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "envelope error",
			status:   http.StatusNotFound,
			body:     `{"code":"SM-CHN-4001","message":"channel not registered","request_id":"req-1"}`,
			wantCode: "SM-CHN-4001",
			wantMsg:  "[SM-CHN-4001] channel not registered (request req-1)",
		},
		{
			name:    "not json",
			status:  http.StatusBadGateway,
			body:    `bad gateway`,
			wantMsg: "status 502",
		},
		{
			name:     "error code with 200",
			status:   http.StatusOK,
			body:     `{"code":"SM-API-4000","message":"odd"}`,
			wantCode: "SM-API-4000",
			wantMsg:  "odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponse(respond(t, tt.status, tt.body), nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode || apiErr.Status != tt.status {
				t.Errorf("APIError = %+v", apiErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseResponse_BadJSON(t *testing.T) {
	err := ParseResponse(respond(t, http.StatusOK, `{`), nil)
	var apiErr *APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want decode error", err)
	}
}

func TestParseResponse_NilTarget(t *testing.T) {
	data, _ := json.Marshal(map[string]any{"code": "OK", "data": []int{1}})
	if err := ParseResponse(respond(t, http.StatusOK, string(data)), nil); err != nil {
		t.Errorf("ParseResponse with nil target: %v", err)
	}
}
