package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultFlushInterval  = 10 * time.Second
	millisecondsPerSecond = 1000
	defaultBatchSize      = 100
)

// Logger defines the logging interface used by Reporter.
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

// Config mirrors config.InfluxDBConfig; kept narrow so this package
// doesn't depend on internal/config.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	FlushInterval int
}

type counterSet struct {
	delivered  atomic.Uint64
	retried    atomic.Uint64
	dropped    atomic.Uint64
	failedOver atomic.Uint64
}

// Reporter implements dispatch.Metrics with in-process atomic counters
// per (service, target), periodically flushed to InfluxDB as points
// carrying the cumulative count at flush time.
type Reporter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger

	mu       sync.Mutex
	counters map[string]*counterSet

	flushInterval time.Duration
	stop          chan struct{}
	wg            sync.WaitGroup
}

// NewReporter connects to InfluxDB and starts the periodic flush loop.
// Returns ErrDisabled (not a connection error) when cfg.Enabled is
// false, so the caller can skip wiring a Reporter into the Dispatcher
// instead of treating it as a startup failure.
func NewReporter(cfg Config, logger Logger) (*Reporter, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = noopLogger{}
	}

	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = int(defaultFlushInterval / time.Second)
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(defaultBatchSize).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond), //nolint:gosec // flushInterval validated positive above
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("metrics: connecting to influxdb: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("metrics: influxdb server not healthy")
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Error("metrics write error", "error", err)
		}
	}()

	r := &Reporter{
		client:        client,
		writeAPI:      writeAPI,
		logger:        logger,
		counters:      make(map[string]*counterSet),
		flushInterval: time.Duration(flushInterval) * time.Second,
		stop:          make(chan struct{}),
	}
	r.wg.Add(1)
	go r.flushLoop()

	return r, nil
}

func (r *Reporter) counterFor(service, target string) *counterSet {
	key := service + ":" + target
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[key]
	if !ok {
		c = &counterSet{}
		r.counters[key] = c
	}
	return c
}

// IncDelivered implements dispatch.Metrics.
func (r *Reporter) IncDelivered(service, target string) {
	r.counterFor(service, target).delivered.Add(1)
}

// IncRetried implements dispatch.Metrics.
func (r *Reporter) IncRetried(service, target string) {
	r.counterFor(service, target).retried.Add(1)
}

// IncDropped implements dispatch.Metrics.
func (r *Reporter) IncDropped(service, target string) {
	r.counterFor(service, target).dropped.Add(1)
}

// IncFailedOver implements dispatch.Metrics.
func (r *Reporter) IncFailedOver(service, target string) {
	r.counterFor(service, target).failedOver.Add(1)
}

func (r *Reporter) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.writePoints()
		case <-r.stop:
			r.writePoints()
			return
		}
	}
}

func (r *Reporter) writePoints() {
	r.mu.Lock()
	snapshot := make(map[string]*counterSet, len(r.counters))
	for k, v := range r.counters {
		snapshot[k] = v
	}
	r.mu.Unlock()

	now := time.Now()
	for key, c := range snapshot {
		service, target := splitKey(key)
		point := write.NewPoint(
			"dispatch_counters",
			map[string]string{"service": service, "target": target},
			map[string]interface{}{
				"delivered":   c.delivered.Load(),
				"retried":     c.retried.Load(),
				"dropped":     c.dropped.Load(),
				"failed_over": c.failedOver.Load(),
			},
			now,
		)
		r.writeAPI.WritePoint(point)
	}
}

func splitKey(key string) (service, target string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// Snapshot returns the current cumulative counts for every target that
// has recorded at least one event, for the admin API's status endpoint.
func (r *Reporter) Snapshot() map[string]map[string]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]map[string]uint64, len(r.counters))
	for key, c := range r.counters {
		out[key] = map[string]uint64{
			"delivered":   c.delivered.Load(),
			"retried":     c.retried.Load(),
			"dropped":     c.dropped.Load(),
			"failed_over": c.failedOver.Load(),
		}
	}
	return out
}

// Close stops the flush loop, flushes any remaining points, and closes
// the underlying InfluxDB client.
func (r *Reporter) Close() error {
	close(r.stop)
	r.wg.Wait()
	r.writeAPI.Flush()
	r.client.Close()
	return nil
}
