package scheduler

import (
	"time"

	"github.com/nerrad/warnbridge/internal/config"
)

// Task is one declared periodic job, resolved once from configuration.
type Task struct {
	Name           string
	Function       string
	Interval       time.Duration
	RunImmediately bool
	Topic          string
	Targets        *config.TargetsSpec
}

func fromConfig(name string, pc config.PeriodicConfig) Task {
	return Task{
		Name:           name,
		Function:       pc.Function,
		Interval:       time.Duration(pc.IntervalSeconds * float64(time.Second)),
		RunImmediately: pc.RunImmediately,
		Topic:          pc.Topic,
		Targets:        pc.Targets,
	}
}
