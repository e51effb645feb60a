package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
)

// Logger defines the logging interface used by the Scheduler.
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

// Matcher resolves a topic to the routes that should process a tick's
// synthetic message. Satisfied by *route.Registry.
type Matcher interface {
	Match(topic string) []*route.Route
}

// Processor runs the transform pipeline for one route/message pair.
// Satisfied by *pipeline.Pipeline.
type Processor interface {
	Process(r *route.Route, msg pipeline.Message) []pipeline.Job
}

// Enqueuer accepts a produced Job for dispatch. Satisfied by
// *dispatch.Dispatcher.
type Enqueuer interface {
	Enqueue(job pipeline.Job)
}

// Scheduler runs every declared periodic task on its own independent
// ticking loop.
type Scheduler struct {
	tasks     []Task
	helpers   *helperfn.Registry
	matcher   Matcher
	processor Processor
	enqueuer  Enqueuer
	logger    Logger
	wg        sync.WaitGroup
}

// New builds a Scheduler from every periodic task declared in cfg.
func New(cfg *config.Config, helpers *helperfn.Registry, matcher Matcher, processor Processor, enqueuer Enqueuer, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	tasks := make([]Task, 0, len(cfg.Periodic))
	for name, pc := range cfg.Periodic {
		tasks = append(tasks, fromConfig(name, pc))
	}
	return &Scheduler{
		tasks:     tasks,
		helpers:   helpers,
		matcher:   matcher,
		processor: processor,
		enqueuer:  enqueuer,
		logger:    logger,
	}
}

// Start launches one ticking goroutine per task. Returns immediately;
// call Wait after cancelling ctx to block until every task loop has
// exited.
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		task := task
		if _, ok := s.helpers.Periodic(task.Function); !ok {
			s.logger.Warn("periodic task function not registered, skipping", "task", task.Name, "function", task.Function)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runTask(ctx, task)
		}()
	}
}

// Wait blocks until every task loop started by Start has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

type taskState struct {
	mu      sync.Mutex
	running bool
}

func (ts *taskState) tryStart() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.running {
		return false
	}
	ts.running = true
	return true
}

func (ts *taskState) finish() {
	ts.mu.Lock()
	ts.running = false
	ts.mu.Unlock()
}

// runTask schedules ticks at fixed points on the wall clock: each tick's
// due time is computed by repeatedly adding Interval to the task's
// anchor time, independent of how long any individual tick's function
// takes to run, so a slow run delays only that run, never the schedule.
func (s *Scheduler) runTask(ctx context.Context, task Task) {
	state := &taskState{}

	next := time.Now()
	if !task.RunImmediately {
		next = next.Add(task.Interval)
	}

	for {
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		due := next
		next = next.Add(task.Interval)

		if !state.tryStart() {
			s.logger.Warn("periodic tick skipped, previous run still in progress", "task", task.Name, "due", due)
			continue
		}

		go func() {
			defer state.finish()
			s.runOnce(task)
		}()
	}
}

func (s *Scheduler) runOnce(task Task) {
	fn, ok := s.helpers.Periodic(task.Function)
	if !ok {
		s.logger.Warn("periodic task function not registered", "task", task.Name, "function", task.Function)
		return
	}

	payload, err := fn()
	if err != nil {
		s.logger.Warn("periodic task function failed", "task", task.Name, "error", err)
		return
	}

	msg := pipeline.Message{Topic: task.Topic, Payload: payload, ReceiveTime: time.Now()}

	if task.Targets != nil {
		synthetic := &route.Route{Name: "periodic:" + task.Name, TopicPattern: task.Topic, Targets: *task.Targets}
		s.dispatchJobs(s.processor.Process(synthetic, msg))
		return
	}

	if task.Topic == "" {
		s.logger.Debug("periodic task produced a value but has no topic or targets, discarding", "task", task.Name)
		return
	}

	matched := s.matcher.Match(task.Topic)
	if len(matched) == 0 {
		s.logger.Debug("periodic task's topic matched no routes", "task", task.Name, "topic", task.Topic)
		return
	}
	for _, r := range matched {
		s.dispatchJobs(s.processor.Process(r, msg))
	}
}

func (s *Scheduler) dispatchJobs(jobs []pipeline.Job) {
	for _, job := range jobs {
		s.enqueuer.Enqueue(job)
	}
}
