package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TargetsKind tags the three forms a route's targets expression can take:
// a static list, a template string, or a reference to a computed helper.
type TargetsKind int

const (
	// TargetsStatic is a fixed list of "service:target" strings.
	TargetsStatic TargetsKind = iota
	// TargetsTemplate is a "{name}"-interpolated string, e.g. "log:{loglevel}".
	TargetsTemplate
	// TargetsComputed names a helper function registered in the helper
	// registry.
	TargetsComputed
)

// TargetsSpec is a route's targets_spec, resolved once at configuration
// load time and immutable afterward.
type TargetsSpec struct {
	Kind     TargetsKind
	Static   []string
	Template string
	Function string
}

// UnmarshalYAML accepts a sequence of "service:target" strings (static), a
// single scalar string (template), or a mapping {function: name} (computed).
func (t *TargetsSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("decoding static targets list: %w", err)
		}
		t.Kind = TargetsStatic
		t.Static = list
		return nil
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("decoding targets template: %w", err)
		}
		t.Kind = TargetsTemplate
		t.Template = s
		return nil
	case yaml.MappingNode:
		var m struct {
			Function string `yaml:"function"`
		}
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("decoding computed targets: %w", err)
		}
		if m.Function == "" {
			return fmt.Errorf("computed targets mapping requires a 'function' key")
		}
		t.Kind = TargetsComputed
		t.Function = m.Function
		return nil
	default:
		return fmt.Errorf("targets must be a list, string, or {function: name} mapping")
	}
}

// MarshalYAML renders the targets expression back out in the same three
// forms UnmarshalYAML accepts.
func (t TargetsSpec) MarshalYAML() (any, error) {
	switch t.Kind {
	case TargetsStatic:
		return t.Static, nil
	case TargetsTemplate:
		return t.Template, nil
	case TargetsComputed:
		return map[string]string{"function": t.Function}, nil
	default:
		return nil, fmt.Errorf("unknown targets kind %d", t.Kind)
	}
}
