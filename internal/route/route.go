package route

import "github.com/nerrad/warnbridge/internal/config"

// Route is a named routing rule, resolved once from configuration and
// immutable afterward.
type Route struct {
	Name           string
	TopicPattern   string
	Targets        config.TargetsSpec
	FilterFn       string
	DataMapFn      string
	AllDataFn      string
	ImageFn        string
	FormatSpec     string
	FormatFn       string
	Template       string
	Priority       int
	IgnoreRetained *bool
	RetryLimit     *int
}

// IgnoresRetained reports whether messages retained by the broker should
// be dropped for this route, falling back to the global default when the
// route does not override it.
func (r *Route) IgnoresRetained(globalDefault bool) bool {
	if r.IgnoreRetained != nil {
		return *r.IgnoreRetained
	}
	return globalDefault
}

// EffectiveRetryLimit returns the route's retry limit, falling back to
// the global default when the route does not override it.
func (r *Route) EffectiveRetryLimit(globalDefault int) int {
	if r.RetryLimit != nil {
		return *r.RetryLimit
	}
	return globalDefault
}

func fromConfig(name string, rc config.RouteConfig) *Route {
	return &Route{
		Name:           name,
		TopicPattern:   rc.TopicPattern,
		Targets:        rc.Targets,
		FilterFn:       rc.FilterFn,
		DataMapFn:      rc.DataMapFn,
		AllDataFn:      rc.AllDataFn,
		ImageFn:        rc.ImageFn,
		FormatSpec:     rc.FormatSpec,
		FormatFn:       rc.FormatFn,
		Template:       rc.Template,
		Priority:       rc.Priority,
		IgnoreRetained: rc.IgnoreRetained,
		RetryLimit:     rc.RetryLimit,
	}
}
