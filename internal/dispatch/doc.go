// Package dispatch owns the per-target delivery queues that sit between
// the transform pipeline and the service plugins: one bounded FIFO queue
// per (service, target) pair, each drained by exactly one worker, with
// drop-oldest backpressure, retry-then-failover, and terminal-outcome
// reporting to the delivery history store and metrics counters.
package dispatch
