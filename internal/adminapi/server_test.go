package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/dispatch"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/target"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	jobs  []pipeline.Job
	depth map[string]int
}

func (d *fakeDispatcher) Enqueue(job pipeline.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
}

func (d *fakeDispatcher) QueueDepths() map[string]int {
	if d.depth == nil {
		return map[string]int{}
	}
	return d.depth
}

type fakePlugins struct {
	hasTarget bool
	dispatch  bool
}

func (p *fakePlugins) HasTarget(string, string) bool { return p.hasTarget }
func (p *fakePlugins) Dispatch(target.Target, pipeline.Job) bool { return p.dispatch }

type fakeHistory struct {
	records []dispatch.DeliveryRecord
	err     error
}

func (h *fakeHistory) Recent(context.Context, int) ([]dispatch.DeliveryRecord, error) {
	return h.records, h.err
}

type fakeAuth struct {
	token string
	err   error
	subj  string
}

func (a *fakeAuth) Login(string, string) (string, error) { return a.token, a.err }
func (a *fakeAuth) Verify(token string) (string, error) {
	if token != a.token || a.token == "" {
		return "", errInvalid
	}
	return a.subj, nil
}

var errInvalid = errors.New("invalid token")

func testRegistry(t *testing.T) *route.Registry {
	t.Helper()
	cfg := &config.Config{
		Services: map[string]config.ServiceConfig{
			"log": {Kind: "log", Targets: map[string][]any{"info": {"info"}}},
		},
		Routes: map[string]config.RouteConfig{
			"r1": {TopicPattern: "a/b", Targets: config.TargetsSpec{Kind: config.TargetsStatic, Static: []string{"log:info"}}},
		},
	}
	reg, err := route.NewRegistry(cfg, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func testServer(t *testing.T, auth Authenticator) *Server {
	t.Helper()
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:      "127.0.0.1",
			WebSocket: config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		},
		Routes:     testRegistry(t),
		Services:   map[string]config.ServiceConfig{"log": {Kind: "log", Targets: map[string][]any{"info": {"info"}}}},
		Plugins:    &fakePlugins{hasTarget: true, dispatch: true},
		Dispatcher: &fakeDispatcher{},
		History:    &fakeHistory{},
		Auth:       auth,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.hub = NewHub(srv.cfg.WebSocket, nil)
	go srv.hub.Run(context.Background())
	return srv
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, &fakeAuth{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok-123"})
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "secret"}) //nolint:errcheck // static payload
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "tok-123" {
		t.Errorf("access_token = %q, want tok-123", resp.AccessToken)
	}
}

func TestHandleLogin_WrongCredentials(t *testing.T) {
	srv := testServer(t, &fakeAuth{err: errInvalid})
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"}) //nolint:errcheck // static payload
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoute_RejectsMissingToken(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok-123", subj: "admin"})
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoute_AcceptsValidToken(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok-123", subj: "admin"})
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestHandleListServices(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok", subj: "admin"})
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"log\"") {
		t.Errorf("body missing service name: %s", w.Body.String())
	}
}

func TestHandleFireTestMessage_UnknownTarget(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok", subj: "admin"})
	srv.plugins = &fakePlugins{hasTarget: false}

	body, _ := json.Marshal(fireTestRequest{Service: "log", Target: "missing"}) //nolint:errcheck // static payload
	req := httptest.NewRequest(http.MethodPost, "/test-message", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleFireTestMessage_Delivers(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok", subj: "admin"})

	body, _ := json.Marshal(fireTestRequest{Service: "log", Target: "info", Title: "test"}) //nolint:errcheck // static payload
	req := httptest.NewRequest(http.MethodPost, "/test-message", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var resp fireTestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Delivered {
		t.Error("expected delivered = true")
	}
}

func TestWebSocket_TicketRoundtrip(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok", subj: "admin"})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ticket := srv.tickets.issue()
	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws?ticket=" + url.QueryEscape(ticket)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close() //nolint:errcheck // test cleanup

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && srv.hub.ClientCount() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.hub.ClientCount())
	}

	srv.hub.Publish(dispatch.JobEvent{Type: dispatch.EventDelivered, JobID: "job-1"})

	conn.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck // test-only deadline
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(msg), "job-1") {
		t.Errorf("message = %s, want it to contain job-1", msg)
	}
}

func TestWebSocket_RejectsMissingTicket(t *testing.T) {
	srv := testServer(t, &fakeAuth{token: "tok", subj: "admin"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
