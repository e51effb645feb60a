package helperfn

import "fmt"

// Suppress is the sentinel FormatFunc implementations return to drop a
// message for one route without treating it as an error.
var Suppress = fmt.Errorf("helperfn: suppress")

// FilterFunc decides whether a message should be dropped. A true return
// drops the message silently; an error is logged and treated as "do not
// drop" (fail-safe delivery).
type FilterFunc func(topic string, payload []byte, routeName string, ctx map[string]any) (drop bool, err error)

// DataMapFunc returns a set of values merged into the transform context.
type DataMapFunc func(topic string, ctx map[string]any) (map[string]any, error)

// AllDataFunc is DataMapFunc's per-target counterpart, invoked once per
// resolved target during target expansion.
type AllDataFunc func(topic string, ctx map[string]any) (map[string]any, error)

// FormatFunc renders a context to the notification body. Returning
// Suppress as the error drops the message for this route only.
type FormatFunc func(ctx map[string]any) (string, error)

// ImageFunc produces an image or attachment reference alongside the
// formatted body.
type ImageFunc func(ctx map[string]any) (string, error)

// TargetFunc resolves a route's computed targets_spec to a list of
// "service:target" strings.
type TargetFunc func(topic string, ctx map[string]any, routeName string, topicTargets any) ([]string, error)

// PeriodicFunc is a scheduler task's function_reference. Its return value
// becomes a synthetic Message payload re-entering the transform pipeline.
type PeriodicFunc func() ([]byte, error)

// Registry is the capability table consulted by the transform pipeline
// and target expander. Populated once at startup; safe for concurrent
// read-only use afterward.
type Registry struct {
	filters     map[string]FilterFunc
	dataMaps    map[string]DataMapFunc
	allData     map[string]AllDataFunc
	formatters  map[string]FormatFunc
	images      map[string]ImageFunc
	targetFuncs map[string]TargetFunc
	periodic    map[string]PeriodicFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		filters:     make(map[string]FilterFunc),
		dataMaps:    make(map[string]DataMapFunc),
		allData:     make(map[string]AllDataFunc),
		formatters:  make(map[string]FormatFunc),
		images:      make(map[string]ImageFunc),
		targetFuncs: make(map[string]TargetFunc),
		periodic:    make(map[string]PeriodicFunc),
	}
}

// RegisterFilter registers a named FilterFunc.
func (r *Registry) RegisterFilter(name string, fn FilterFunc) { r.filters[name] = fn }

// RegisterDataMap registers a named DataMapFunc.
func (r *Registry) RegisterDataMap(name string, fn DataMapFunc) { r.dataMaps[name] = fn }

// RegisterAllData registers a named AllDataFunc.
func (r *Registry) RegisterAllData(name string, fn AllDataFunc) { r.allData[name] = fn }

// RegisterFormat registers a named FormatFunc.
func (r *Registry) RegisterFormat(name string, fn FormatFunc) { r.formatters[name] = fn }

// RegisterImage registers a named ImageFunc.
func (r *Registry) RegisterImage(name string, fn ImageFunc) { r.images[name] = fn }

// RegisterTargetFunc registers a named TargetFunc.
func (r *Registry) RegisterTargetFunc(name string, fn TargetFunc) { r.targetFuncs[name] = fn }

// RegisterPeriodic registers a named PeriodicFunc.
func (r *Registry) RegisterPeriodic(name string, fn PeriodicFunc) { r.periodic[name] = fn }

// Filter looks up a registered FilterFunc.
func (r *Registry) Filter(name string) (FilterFunc, bool) { fn, ok := r.filters[name]; return fn, ok }

// DataMap looks up a registered DataMapFunc.
func (r *Registry) DataMap(name string) (DataMapFunc, bool) { fn, ok := r.dataMaps[name]; return fn, ok }

// AllData looks up a registered AllDataFunc.
func (r *Registry) AllData(name string) (AllDataFunc, bool) { fn, ok := r.allData[name]; return fn, ok }

// Format looks up a registered FormatFunc.
func (r *Registry) Format(name string) (FormatFunc, bool) { fn, ok := r.formatters[name]; return fn, ok }

// Image looks up a registered ImageFunc.
func (r *Registry) Image(name string) (ImageFunc, bool) { fn, ok := r.images[name]; return fn, ok }

// TargetFunc looks up a registered TargetFunc.
func (r *Registry) TargetFunc(name string) (TargetFunc, bool) {
	fn, ok := r.targetFuncs[name]
	return fn, ok
}

// Periodic looks up a registered PeriodicFunc.
func (r *Registry) Periodic(name string) (PeriodicFunc, bool) {
	fn, ok := r.periodic[name]
	return fn, ok
}
