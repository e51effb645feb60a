package plugin

import (
	"fmt"
	"testing"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/target"
)

type fakePlugin struct {
	initErr    error
	deliverRet bool
	panicOn    bool
	delivered  []*DeliveryItem
}

func (f *fakePlugin) Init(ctx *ServiceContext) error { return f.initErr }

func (f *fakePlugin) Deliver(ctx *ServiceContext, item *DeliveryItem) bool {
	if f.panicOn {
		panic("boom")
	}
	f.delivered = append(f.delivered, item)
	return f.deliverRet
}

func testServices() map[string]config.ServiceConfig {
	return map[string]config.ServiceConfig{
		"log": {Kind: "log", Targets: map[string][]any{"info": {"info"}}},
	}
}

func TestNewRegistry_CallsInitOnce(t *testing.T) {
	p := &fakePlugin{deliverRet: true}
	_, err := NewRegistry(testServices(), map[string]Plugin{"log": p}, nil, "test")
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
}

func TestNewRegistry_MissingPlugin(t *testing.T) {
	_, err := NewRegistry(testServices(), map[string]Plugin{}, nil, "test")
	if err == nil {
		t.Error("NewRegistry() expected error for unregistered plugin kind, got nil")
	}
}

func TestNewRegistry_InitFailurePropagates(t *testing.T) {
	p := &fakePlugin{initErr: fmt.Errorf("boom")}
	_, err := NewRegistry(testServices(), map[string]Plugin{"log": p}, nil, "test")
	if err == nil {
		t.Error("NewRegistry() expected error when Init fails, got nil")
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	p := &fakePlugin{deliverRet: true}
	reg, err := NewRegistry(testServices(), map[string]Plugin{"log": p}, nil, "test")
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	ok := reg.Dispatch(target.Target{Service: "log", Name: "info"}, pipeline.Job{Body: "hello"})
	if !ok {
		t.Error("Dispatch() = false, want true")
	}
	if len(p.delivered) != 1 || p.delivered[0].Body != "hello" {
		t.Errorf("delivered = %v, want one item with body 'hello'", p.delivered)
	}
}

func TestRegistry_Dispatch_CarriesRawPayload(t *testing.T) {
	p := &fakePlugin{deliverRet: true}
	reg, err := NewRegistry(testServices(), map[string]Plugin{"log": p}, nil, "test")
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	raw := []byte(`{"raw":true}`)
	reg.Dispatch(target.Target{Service: "log", Name: "info"}, pipeline.Job{Body: "formatted", Payload: raw})
	if len(p.delivered) != 1 || string(p.delivered[0].Payload) != string(raw) {
		t.Errorf("delivered[0].Payload = %v, want %q", p.delivered, raw)
	}
}

func TestRegistry_Dispatch_UnknownService(t *testing.T) {
	reg, _ := NewRegistry(testServices(), map[string]Plugin{"log": &fakePlugin{}}, nil, "test")
	if ok := reg.Dispatch(target.Target{Service: "nosuch", Name: "x"}, pipeline.Job{}); ok {
		t.Error("Dispatch() = true, want false for unknown service")
	}
}

func TestRegistry_Dispatch_UnknownTarget(t *testing.T) {
	reg, _ := NewRegistry(testServices(), map[string]Plugin{"log": &fakePlugin{}}, nil, "test")
	if ok := reg.Dispatch(target.Target{Service: "log", Name: "nosuch"}, pipeline.Job{}); ok {
		t.Error("Dispatch() = true, want false for unknown target")
	}
}

func TestRegistry_Dispatch_RecoversPanic(t *testing.T) {
	p := &fakePlugin{panicOn: true}
	reg, _ := NewRegistry(testServices(), map[string]Plugin{"log": p}, nil, "test")

	ok := reg.Dispatch(target.Target{Service: "log", Name: "info"}, pipeline.Job{})
	if ok {
		t.Error("Dispatch() = true, want false when plugin panics")
	}
}

func TestRegistry_HasTarget(t *testing.T) {
	reg, _ := NewRegistry(testServices(), map[string]Plugin{"log": &fakePlugin{}}, nil, "test")
	if !reg.HasTarget("log", "info") {
		t.Error("HasTarget() = false, want true")
	}
	if reg.HasTarget("log", "nosuch") {
		t.Error("HasTarget() = true, want false")
	}
}
