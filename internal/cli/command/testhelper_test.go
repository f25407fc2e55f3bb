package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"
)

// mockServer is an admin API stand-in that routes by exact
// "METHOD /path".
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		m.mu.Lock()
		m.requests = append(m.requests, key)
		h, ok := m.handlers[key]
		m.mu.Unlock()
		if !ok {
			errorResponse(w, http.StatusNotFound, "SM-API-4040", "no route "+key)
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) handle(pattern string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = h
}

// ok registers pattern to answer with data in a success envelope.
func (m *mockServer) ok(pattern string, data any) {
	m.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code":       "OK",
			"message":    "Success",
			"request_id": "req-test",
			"data":       data,
		})
	})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]string{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
	})
}

// result is the captured outcome of one CLI invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs snapmesh-cli with a private config file. Exit errors are
// returned instead of terminating the test binary.
func runApp(t *testing.T, configPath string, args ...string) result {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "cli.yaml")
	}

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"snapmesh-cli", "--config", configPath}, args...)
	err := app.Run(argv)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func assertContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q:\n%s", w, got)
		}
	}
}
