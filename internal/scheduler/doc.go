// Package scheduler runs declared periodic tasks: each ticks
// independently at a fixed interval, corrected against the wall clock
// rather than against how long the previous tick took, and a tick whose
// function is still running when the next one is due is skipped and
// logged rather than queued. A tick's return value re-enters the
// transform pipeline as a synthetic Message.
package scheduler
