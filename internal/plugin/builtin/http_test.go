package builtin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad/warnbridge/internal/plugin"
)

func newHTTPPlugin(t *testing.T) *HTTPPlugin {
	p := &HTTPPlugin{}
	if err := p.Init(&plugin.ServiceContext{Version: "test"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return p
}

func TestHTTPPlugin_PostsBodyByDefault(t *testing.T) {
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newHTTPPlugin(t)
	ctx := &plugin.ServiceContext{Logger: &recordingLogger{}, Version: "test"}
	ok := p.Deliver(ctx, &plugin.DeliveryItem{Addrs: []any{srv.URL}, Body: "hello world"})
	if !ok {
		t.Fatal("Deliver() = false, want true")
	}
	if gotMethod != "POST" {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotBody != "hello world" {
		t.Errorf("body = %q, want %q", gotBody, "hello world")
	}
}

func TestHTTPPlugin_ErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newHTTPPlugin(t)
	ctx := &plugin.ServiceContext{Logger: &recordingLogger{}, Version: "test"}
	if ok := p.Deliver(ctx, &plugin.DeliveryItem{Addrs: []any{srv.URL}, Body: "x"}); ok {
		t.Error("Deliver() = true, want false on 5xx status")
	}
}

func TestHTTPPlugin_JSONDataParam(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newHTTPPlugin(t)
	ctx := &plugin.ServiceContext{Logger: &recordingLogger{}, Version: "test"}
	item := &plugin.DeliveryItem{
		Addrs: []any{srv.URL, map[string]any{
			"json": true,
			"data": map[string]any{"room": "@room", "label": "static"},
		}},
		Context: map[string]any{"room": "kitchen"},
		Body:    "unused",
	}
	ok := p.Deliver(ctx, item)
	if !ok {
		t.Fatal("Deliver() = false, want true")
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", gotContentType)
	}
	if gotBody == "" {
		t.Error("expected a JSON body, got empty string")
	}
}

func TestHTTPPlugin_MissingAddrFails(t *testing.T) {
	p := newHTTPPlugin(t)
	ctx := &plugin.ServiceContext{Logger: &recordingLogger{}, Version: "test"}
	if ok := p.Deliver(ctx, &plugin.DeliveryItem{Body: "x"}); ok {
		t.Error("Deliver() = true, want false when no URL configured")
	}
}

func TestHTTPPlugin_InvalidURLFails(t *testing.T) {
	p := newHTTPPlugin(t)
	ctx := &plugin.ServiceContext{Logger: &recordingLogger{}, Version: "test"}
	if ok := p.Deliver(ctx, &plugin.DeliveryItem{Addrs: []any{"http://[::1"}, Body: "x"}); ok {
		t.Error("Deliver() = true, want false for unparseable URL")
	}
}
