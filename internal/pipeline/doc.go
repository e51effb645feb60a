// Package pipeline evaluates a route against one broker message,
// producing a Job for every target the message should be delivered to.
//
// Processing runs in fixed, short-circuiting stages: retained filtering,
// context building, payload decode, filter_fn, datamap_fn, format, and
// finally target expansion with per-target alldata_fn augmentation. A
// helper function raising an error never aborts the message; it is
// logged and processing continues with whatever context was already
// accumulated, except a failing filter_fn is treated as "do not drop".
package pipeline
