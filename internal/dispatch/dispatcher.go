package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/target"
)

// failoverRouteName tags Jobs synthesized for the failover path. A Job
// carrying it is never re-failed-over on exhaustion, which is what keeps
// a dead failover target from recursing forever.
const failoverRouteName = "failover"

const maxBackoff = 30 * time.Second

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Plugins is the synchronous delivery surface the Dispatcher calls into;
// satisfied by *plugin.Registry.
type Plugins interface {
	Dispatch(t target.Target, job pipeline.Job) bool
}

// Defaults carries the subset of config.DefaultsConfig the Dispatcher
// needs, kept narrow so this package doesn't have to import config.
type Defaults struct {
	QueueCapacity int
	RetryLimit    int
	BackoffBase   time.Duration
}

// Dispatcher owns one bounded queue and one worker per actually-used
// target, retries failed deliveries up to each route's retry limit, and
// routes exhausted Jobs to the configured failover targets.
type Dispatcher struct {
	defaults Defaults
	routes   *route.Registry
	plugins  Plugins
	failover []target.Target
	logger   Logger
	history  History
	metrics  Metrics
	events   Events

	mu     sync.Mutex
	queues map[string]*queue
	wg     sync.WaitGroup

	shutdown chan struct{}
}

// New builds a Dispatcher. failoverTargets are the statically resolved
// targets of the `failover` pseudo-route, evaluated once at startup.
func New(defaults Defaults, routes *route.Registry, plugins Plugins, failoverTargets []target.Target, logger Logger, history History, metrics Metrics, events Events) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	if history == nil {
		history = noopHistory{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if events == nil {
		events = noopEvents{}
	}
	return &Dispatcher{
		defaults: defaults,
		routes:   routes,
		plugins:  plugins,
		failover: failoverTargets,
		logger:   logger,
		history:  history,
		metrics:  metrics,
		events:   events,
		queues:   make(map[string]*queue),
		shutdown: make(chan struct{}),
	}
}

// Enqueue places job on its target's queue, creating the queue (and its
// worker) on first use. Never blocks: a full queue drops its oldest Job.
func (d *Dispatcher) Enqueue(job pipeline.Job) {
	q := d.queueFor(job.Target)
	dropped, didDrop := q.enqueue(job)
	if didDrop {
		d.metrics.IncDropped(job.Target.Service, job.Target.Name)
		d.logger.Warn("dispatch queue full, dropped oldest job",
			"service", job.Target.Service, "target", job.Target.Name, "dropped_topic", dropped.Topic)
		d.events.Publish(JobEvent{
			Type: EventDropped, JobID: dropped.ID, Timestamp: time.Now(), RouteName: dropped.RouteName,
			Service: dropped.Target.Service, Target: dropped.Target.Name, Topic: dropped.Topic, AttemptCount: dropped.AttemptCount,
		})
	}
	d.events.Publish(JobEvent{
		Type: EventEnqueued, JobID: job.ID, Timestamp: time.Now(), RouteName: job.RouteName,
		Service: job.Target.Service, Target: job.Target.Name, Topic: job.Topic, AttemptCount: job.AttemptCount,
	})
}

func (d *Dispatcher) queueFor(t target.Target) *queue {
	key := t.String()

	d.mu.Lock()
	q, ok := d.queues[key]
	if !ok {
		capacity := d.defaults.QueueCapacity
		if capacity <= 0 {
			capacity = 1
		}
		q = newQueue(capacity)
		d.queues[key] = q
		d.wg.Add(1)
		go d.runWorker(t, q)
	}
	d.mu.Unlock()
	return q
}

func (d *Dispatcher) runWorker(t target.Target, q *queue) {
	defer d.wg.Done()

	for {
		job, ok := q.dequeue()
		if !ok {
			return
		}
		d.handle(t, q, job)
	}
}

func (d *Dispatcher) handle(t target.Target, ownQueue *queue, job pipeline.Job) {
	delivered := d.safeDeliver(t, job)
	if delivered {
		d.metrics.IncDelivered(t.Service, t.Name)
		d.history.Record(DeliveryRecord{
			ID: uuid.NewString(), JobID: job.ID,
			Timestamp: time.Now(), RouteName: job.RouteName, Service: t.Service,
			Target: t.Name, Topic: job.Topic, Outcome: OutcomeDelivered, AttemptCount: job.AttemptCount,
		})
		d.events.Publish(JobEvent{
			Type: EventDelivered, JobID: job.ID, Timestamp: time.Now(), RouteName: job.RouteName,
			Service: t.Service, Target: t.Name, Topic: job.Topic, AttemptCount: job.AttemptCount,
		})
		return
	}

	job.AttemptCount++
	limit := d.retryLimitFor(job.RouteName)

	if job.AttemptCount <= limit {
		d.metrics.IncRetried(t.Service, t.Name)
		d.events.Publish(JobEvent{
			Type: EventRetrying, JobID: job.ID, Timestamp: time.Now(), RouteName: job.RouteName,
			Service: t.Service, Target: t.Name, Topic: job.Topic, AttemptCount: job.AttemptCount,
		})
		d.retry(job, ownQueue)
		return
	}

	if job.RouteName == failoverRouteName {
		d.logger.Warn("failover job exhausted retries, discarding",
			"topic", job.Topic, "service", t.Service, "target", t.Name)
		d.history.Record(DeliveryRecord{
			ID: uuid.NewString(), JobID: job.ID,
			Timestamp: time.Now(), RouteName: job.RouteName, Service: t.Service,
			Target: t.Name, Topic: job.Topic, Outcome: OutcomeFailoverFailed, AttemptCount: job.AttemptCount,
		})
		d.events.Publish(JobEvent{
			Type: EventFailoverFailed, JobID: job.ID, Timestamp: time.Now(), RouteName: job.RouteName,
			Service: t.Service, Target: t.Name, Topic: job.Topic, AttemptCount: job.AttemptCount,
		})
		return
	}

	d.logger.Warn("job exhausted retries, sending to failover",
		"route", job.RouteName, "topic", job.Topic, "service", t.Service, "target", t.Name)
	d.metrics.IncFailedOver(t.Service, t.Name)
	d.history.Record(DeliveryRecord{
		ID: uuid.NewString(), JobID: job.ID,
		Timestamp: time.Now(), RouteName: job.RouteName, Service: t.Service,
		Target: t.Name, Topic: job.Topic, Outcome: OutcomeFailedOver, AttemptCount: job.AttemptCount,
	})
	d.events.Publish(JobEvent{
		Type: EventFailedOver, JobID: job.ID, Timestamp: time.Now(), RouteName: job.RouteName,
		Service: t.Service, Target: t.Name, Topic: job.Topic, AttemptCount: job.AttemptCount,
	})
	d.sendToFailover(job)
}

func (d *Dispatcher) retry(job pipeline.Job, ownQueue *queue) {
	backoff := d.defaults.BackoffBase << uint(job.AttemptCount-1)
	if backoff <= 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	select {
	case <-time.After(backoff):
	case <-d.shutdown:
		return
	}
	ownQueue.enqueue(job)
}

func (d *Dispatcher) sendToFailover(job pipeline.Job) {
	if len(d.failover) == 0 {
		d.logger.Warn("job failed over but no failover targets configured, discarding", "topic", job.Topic)
		return
	}
	for _, t := range d.failover {
		failoverJob := job
		failoverJob.ID = pipeline.NewJobID()
		failoverJob.Target = t
		failoverJob.RouteName = failoverRouteName
		failoverJob.AttemptCount = 0
		d.Enqueue(failoverJob)
	}
}

func (d *Dispatcher) retryLimitFor(routeName string) int {
	if routeName == failoverRouteName {
		return 0
	}
	r, err := d.routes.Get(routeName)
	if err != nil {
		return d.defaults.RetryLimit
	}
	return r.EffectiveRetryLimit(d.defaults.RetryLimit)
}

// safeDeliver calls the plugin registry's Dispatch, never letting a
// plugin panic escape to the worker goroutine.
func (d *Dispatcher) safeDeliver(t target.Target, job pipeline.Job) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("plugin dispatch panicked", "service", t.Service, "target", t.Name, "panic", r)
			ok = false
		}
	}()
	return d.plugins.Dispatch(t, job)
}

// Shutdown waits up to grace for every queue to drain, then forcibly
// abandons whatever remains and waits for all workers to exit.
func (d *Dispatcher) Shutdown(ctx context.Context, grace time.Duration) {
	close(d.shutdown)

	deadline := time.Now().Add(grace)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

drainWait:
	for time.Now().Before(deadline) {
		if d.totalQueued() == 0 {
			break drainWait
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			break drainWait
		}
	}

	d.mu.Lock()
	var abandoned int
	for _, q := range d.queues {
		abandoned += q.drainAndAbandon()
	}
	d.mu.Unlock()

	if abandoned > 0 {
		d.logger.Warn("shutdown grace period elapsed, abandoning queued jobs", "abandoned", abandoned)
	}

	d.wg.Wait()
}

func (d *Dispatcher) totalQueued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, q := range d.queues {
		total += q.len()
	}
	return total
}

// QueueDepths returns the current queue length for every target that has
// had at least one Job enqueued, keyed by target.Target.String(). Used
// by the admin API's read-only queue inspection endpoint.
func (d *Dispatcher) QueueDepths() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	depths := make(map[string]int, len(d.queues))
	for key, q := range d.queues {
		depths[key] = q.len()
	}
	return depths
}
