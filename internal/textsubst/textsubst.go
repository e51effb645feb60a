// Package textsubst renders context values into "{name}"-style
// placeholder strings, used by both the transform pipeline's format
// stage and the target expander's template form.
package textsubst

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate replaces every "{name}" placeholder in tmpl with the
// rendered value of ctx[name]. A placeholder whose name is absent from
// ctx is left in place, literally, rather than treated as an error.
func Interpolate(tmpl string, ctx map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := ctx[name]
		if !ok {
			return match
		}
		return RenderValue(v)
	})
}

// RenderValue converts a context value to its total, locale-independent
// textual form. Scalars use fmt's default formatting; object-form values
// (maps, slices) are rendered as their round-trippable JSON text.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
