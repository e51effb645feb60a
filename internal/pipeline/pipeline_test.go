package pipeline

import (
	"fmt"
	"testing"

	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/target"
)

type stubTargeter struct {
	targets []target.Target
}

func (s stubTargeter) Expand(r *route.Route, topic string, ctx map[string]any) []target.Target {
	return s.targets
}

func singleTarget(service, name string) Targeter {
	return stubTargeter{targets: []target.Target{{Service: service, Name: name}}}
}

func TestProcess_DropsRetainedWhenIgnored(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	ignore := true
	r := &route.Route{Name: "r1", IgnoreRetained: &ignore}

	jobs := p.Process(r, Message{Topic: "t", Retained: true})
	if len(jobs) != 0 {
		t.Errorf("Process() = %v, want no jobs", jobs)
	}
}

func TestProcess_UsesGlobalRetainedDefault(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, true)
	r := &route.Route{Name: "r1"}

	jobs := p.Process(r, Message{Topic: "t", Retained: true})
	if len(jobs) != 0 {
		t.Errorf("Process() = %v, want no jobs (global default ignores retained)", jobs)
	}
}

func TestProcess_FormatSpecInterpolation(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FormatSpec: "{greeting} {name}"}

	jobs := p.Process(r, Message{Topic: "t", Payload: []byte(`{"greeting":"hi","name":"bob"}`)})
	if len(jobs) != 1 {
		t.Fatalf("Process() returned %d jobs, want 1", len(jobs))
	}
	if jobs[0].Body != "hi bob" {
		t.Errorf("Body = %q, want %q", jobs[0].Body, "hi bob")
	}
}

func TestProcess_RawPayloadWhenNoFormat(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1"}

	jobs := p.Process(r, Message{Topic: "t", Payload: []byte("plain text")})
	if len(jobs) != 1 || jobs[0].Body != "plain text" {
		t.Errorf("Process() = %v, want body %q", jobs, "plain text")
	}
}

func TestProcess_CarriesRawPayloadOntoJob(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FormatSpec: "formatted body"}

	raw := []byte(`{"greeting":"hi"}`)
	jobs := p.Process(r, Message{Topic: "t", Payload: raw})
	if len(jobs) != 1 {
		t.Fatalf("Process() returned %d jobs, want 1", len(jobs))
	}
	if string(jobs[0].Payload) != string(raw) {
		t.Errorf("Payload = %q, want %q (raw bytes, independent of Body's formatting)", jobs[0].Payload, raw)
	}
	if jobs[0].Body != "formatted body" {
		t.Errorf("Body = %q, want %q", jobs[0].Body, "formatted body")
	}
}

func TestProcess_FilterFnDrops(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterFilter("drop_all", func(topic string, payload []byte, routeName string, ctx map[string]any) (bool, error) {
		return true, nil
	})
	p := New(helpers, singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FilterFn: "drop_all"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 0 {
		t.Errorf("Process() = %v, want no jobs", jobs)
	}
}

func TestProcess_FilterFnErrorIsFailSafe(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterFilter("broken", func(topic string, payload []byte, routeName string, ctx map[string]any) (bool, error) {
		return true, fmt.Errorf("boom")
	})
	p := New(helpers, singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FilterFn: "broken"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 1 {
		t.Errorf("Process() = %v, want 1 job (failed filter must fail open)", jobs)
	}
}

func TestProcess_DataMapMergesIntoContext(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterDataMap("enrich", func(topic string, ctx map[string]any) (map[string]any, error) {
		return map[string]any{"extra": "value"}, nil
	})
	p := New(helpers, singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", DataMapFn: "enrich", FormatSpec: "{extra}"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 1 || jobs[0].Body != "value" {
		t.Errorf("Process() = %v, want body %q", jobs, "value")
	}
}

func TestProcess_FormatFnSuppress(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterFormat("suppress", func(ctx map[string]any) (string, error) {
		return "", helperfn.Suppress
	})
	p := New(helpers, singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FormatFn: "suppress"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 0 {
		t.Errorf("Process() = %v, want no jobs (suppressed)", jobs)
	}
}

func TestProcess_NoTargetsDropsMessage(t *testing.T) {
	p := New(helperfn.NewRegistry(), stubTargeter{}, nil, nil, false)
	r := &route.Route{Name: "r1"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 0 {
		t.Errorf("Process() = %v, want no jobs", jobs)
	}
}

func TestProcess_OneJobPerTarget(t *testing.T) {
	targeter := stubTargeter{targets: []target.Target{{Service: "log", Name: "info"}, {Service: "log", Name: "crit"}}}
	p := New(helperfn.NewRegistry(), targeter, nil, nil, false)
	r := &route.Route{Name: "r1"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 2 {
		t.Fatalf("Process() returned %d jobs, want 2", len(jobs))
	}
	if jobs[0].Target.Name == jobs[1].Target.Name {
		t.Error("expected distinct targets per job")
	}
}

func TestProcess_AllDataAugmentsEachTargetIndependently(t *testing.T) {
	helpers := helperfn.NewRegistry()
	calls := 0
	helpers.RegisterAllData("count", func(topic string, ctx map[string]any) (map[string]any, error) {
		calls++
		return map[string]any{"call": calls}, nil
	})
	targeter := stubTargeter{targets: []target.Target{{Service: "log", Name: "info"}, {Service: "log", Name: "crit"}}}
	p := New(helpers, targeter, nil, nil, false)
	r := &route.Route{Name: "r1", AllDataFn: "count"}

	jobs := p.Process(r, Message{Topic: "t"})
	if len(jobs) != 2 {
		t.Fatalf("Process() returned %d jobs, want 2", len(jobs))
	}
	if jobs[0].Context["call"] == jobs[1].Context["call"] {
		t.Error("expected alldata_fn to run independently per target")
	}
}

func TestProcess_ContextSnapshotIsDisconnected(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1"}

	jobs := p.Process(r, Message{Topic: "t", Payload: []byte(`{"nested":{"a":1}}`)})
	if len(jobs) != 1 {
		t.Fatalf("Process() returned %d jobs, want 1", len(jobs))
	}
	nested, ok := jobs[0].Context["nested"].(map[string]any)
	if !ok {
		t.Fatal("expected nested map in context")
	}
	nested["a"] = 999

	jobs2 := p.Process(r, Message{Topic: "t", Payload: []byte(`{"nested":{"a":1}}`)})
	nested2 := jobs2[0].Context["nested"].(map[string]any)
	if nested2["a"] != float64(1) {
		t.Error("mutating one job's context leaked into a later Process() call")
	}
}

func TestProcess_PayloadDecodeFailureIsNotFatal(t *testing.T) {
	p := New(helperfn.NewRegistry(), singleTarget("log", "info"), nil, nil, false)
	r := &route.Route{Name: "r1", FormatSpec: "{missing}"}

	jobs := p.Process(r, Message{Topic: "t", Payload: []byte("not json")})
	if len(jobs) != 1 {
		t.Fatalf("Process() returned %d jobs, want 1", len(jobs))
	}
	if jobs[0].Body != "{missing}" {
		t.Errorf("Body = %q, want literal placeholder preserved", jobs[0].Body)
	}
}
