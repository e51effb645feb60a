package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
)

type fakeMatcher struct {
	routes []*route.Route
}

func (m *fakeMatcher) Match(topic string) []*route.Route { return m.routes }

type fakeProcessor struct {
	mu    sync.Mutex
	calls int
	jobs  []pipeline.Job
}

func (p *fakeProcessor) Process(r *route.Route, msg pipeline.Message) []pipeline.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.jobs
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []pipeline.Job
}

func (e *fakeEnqueuer) Enqueue(job pipeline.Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job)
}

func (e *fakeEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestScheduler_RunsImmediatelyWhenFlagSet(t *testing.T) {
	helpers := helperfn.NewRegistry()
	var calls atomic.Int32
	helpers.RegisterPeriodic("tick", func() ([]byte, error) {
		calls.Add(1)
		return []byte("ok"), nil
	})

	r := &route.Route{Name: "r1"}
	matcher := &fakeMatcher{routes: []*route.Route{r}}
	processor := &fakeProcessor{jobs: []pipeline.Job{{Topic: "x"}}}
	enqueuer := &fakeEnqueuer{}

	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "tick", IntervalSeconds: 60, RunImmediately: true, Topic: "test/ip"},
	}}
	s := New(cfg, helpers, matcher, processor, enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitUntil(t, time.Second, func() bool { return calls.Load() >= 1 })
	waitUntil(t, time.Second, func() bool { return enqueuer.count() >= 1 })
}

func TestScheduler_SkipsOverlappingTick(t *testing.T) {
	helpers := helperfn.NewRegistry()
	release := make(chan struct{})
	var calls atomic.Int32
	helpers.RegisterPeriodic("slow", func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("ok"), nil
	})

	matcher := &fakeMatcher{}
	processor := &fakeProcessor{}
	enqueuer := &fakeEnqueuer{}

	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "slow", IntervalSeconds: 0.02, RunImmediately: true, Topic: "test/slow"},
	}}
	s := New(cfg, helpers, matcher, processor, enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitUntil(t, time.Second, func() bool { return calls.Load() >= 1 })
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1 while first tick is still running", calls.Load())
	}
	close(release)
}

func TestScheduler_DispatchesViaTopicMatch(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterPeriodic("tick", func() ([]byte, error) { return []byte("ok"), nil })

	r := &route.Route{Name: "r1"}
	matcher := &fakeMatcher{routes: []*route.Route{r}}
	processor := &fakeProcessor{jobs: []pipeline.Job{{Topic: "test/ip"}}}
	enqueuer := &fakeEnqueuer{}

	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "tick", IntervalSeconds: 60, RunImmediately: true, Topic: "test/ip"},
	}}
	s := New(cfg, helpers, matcher, processor, enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitUntil(t, time.Second, func() bool { return processor.callCount() >= 1 })
	waitUntil(t, time.Second, func() bool { return enqueuer.count() >= 1 })
}

func TestScheduler_DispatchesViaExplicitTargets(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterPeriodic("tick", func() ([]byte, error) { return []byte("ok"), nil })

	matcher := &fakeMatcher{} // never consulted when Targets is set
	processor := &fakeProcessor{jobs: []pipeline.Job{{Topic: "test/ip"}}}
	enqueuer := &fakeEnqueuer{}

	spec := config.TargetsSpec{Kind: config.TargetsStatic, Static: []string{"log:info"}}
	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "tick", IntervalSeconds: 60, RunImmediately: true, Topic: "test/ip", Targets: &spec},
	}}
	s := New(cfg, helpers, matcher, processor, enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitUntil(t, time.Second, func() bool { return processor.callCount() >= 1 })
	waitUntil(t, time.Second, func() bool { return enqueuer.count() >= 1 })
}

func TestScheduler_SkipsUnregisteredFunction(t *testing.T) {
	helpers := helperfn.NewRegistry()
	matcher := &fakeMatcher{}
	processor := &fakeProcessor{}
	enqueuer := &fakeEnqueuer{}

	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "nosuch", IntervalSeconds: 60, RunImmediately: true, Topic: "test/ip"},
	}}
	s := New(cfg, helpers, matcher, processor, enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	if processor.callCount() != 0 {
		t.Errorf("callCount() = %d, want 0 for an unregistered function", processor.callCount())
	}
}

func TestScheduler_WaitReturnsAfterCancel(t *testing.T) {
	helpers := helperfn.NewRegistry()
	helpers.RegisterPeriodic("tick", func() ([]byte, error) { return []byte("ok"), nil })

	cfg := &config.Config{Periodic: map[string]config.PeriodicConfig{
		"p1": {Function: "tick", IntervalSeconds: 60, Topic: "test/ip"},
	}}
	s := New(cfg, helpers, &fakeMatcher{}, &fakeProcessor{}, &fakeEnqueuer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after context cancellation")
	}
}
