package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// mockServer is a fake daemon: handlers keyed by "METHOD /path".
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	bodies   map[string]string
	calls    []string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{
		handlers: make(map[string]http.HandlerFunc),
		bodies:   make(map[string]string),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.calls = append(m.calls, key)
		m.bodies[key] = string(body)
		h := m.handlers[key]
		m.mu.Unlock()

		if h == nil {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) handle(key string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = h
}

// ok answers every call to key with a success envelope around data.
func (m *mockServer) ok(key string, data any) {
	m.handle(key, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, "OK", "Success", data)
	})
}

// fail answers every call to key with an error envelope.
func (m *mockServer) fail(key string, status int, code, msg string, data any) {
	m.handle(key, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, status, code, msg, data)
	})
}

func (m *mockServer) body(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[key]
}

func (m *mockServer) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func jsonResponse(w http.ResponseWriter, status int, code, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    msg,
		"request_id": "req-test",
		"timestamp":  1700000000000,
		"data":       data,
	})
}

type runResult struct {
	out    string
	stderr string
	err    error
}

// run executes the CLI against srv with an empty config file.
func run(t *testing.T, srv *mockServer, stdin string, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	full := []string{"tradeguard-cli", "--config", filepath.Join(t.TempDir(), "cli.yaml")}
	if srv != nil {
		full = append(full, "--server", srv.URL)
	}
	err := app.Run(append(full, args...))
	return runResult{out: out.String(), stderr: errOut.String(), err: err}
}
