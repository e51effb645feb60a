package pipeline

import (
	"errors"

	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/textsubst"
)

// TemplateStore renders a named template (see Route.Template) against a
// transform context. Loading and parsing template files is an ambient
// concern outside the pipeline; this is the narrow interface the
// pipeline consumes from whatever owns that concern.
type TemplateStore interface {
	Render(name string, ctx map[string]any) (string, error)
}

// errSuppressed signals that a FormatFunc asked to drop the message for
// this route only, not that formatting failed.
var errSuppressed = errors.New("pipeline: message suppressed by format function")

// formatBody resolves step 7 of the pipeline: named template takes
// precedence over format_fn, which takes precedence over format_spec,
// which falls back to the raw payload rendered as text.
func (p *Pipeline) formatBody(r *route.Route, ctx map[string]any, payload []byte) (string, error) {
	if r.Template != "" && p.templates != nil {
		body, err := p.templates.Render(r.Template, ctx)
		if err != nil {
			p.logger.Warn("template render failed, falling back to format_spec", "route", r.Name, "template", r.Template, "error", err)
		} else {
			return body, nil
		}
	}

	if r.FormatFn != "" {
		fn, ok := p.helpers.Format(r.FormatFn)
		if !ok {
			p.logger.Warn("format function not registered", "route", r.Name, "function", r.FormatFn)
		} else {
			body, err := fn(ctx)
			if err != nil {
				if errors.Is(err, helperfn.Suppress) {
					return "", errSuppressed
				}
				p.logger.Warn("format function failed, falling back to format_spec", "route", r.Name, "function", r.FormatFn, "error", err)
			} else {
				return body, nil
			}
		}
	}

	if r.FormatSpec != "" {
		return textsubst.Interpolate(r.FormatSpec, ctx), nil
	}

	return string(payload), nil
}

func (p *Pipeline) resolveImage(r *route.Route, ctx map[string]any) string {
	if r.ImageFn == "" {
		return ""
	}
	fn, ok := p.helpers.Image(r.ImageFn)
	if !ok {
		p.logger.Warn("image function not registered", "route", r.Name, "function", r.ImageFn)
		return ""
	}
	img, err := fn(ctx)
	if err != nil {
		p.logger.Warn("image function failed", "route", r.Name, "function", r.ImageFn, "error", err)
		return ""
	}
	return img
}
