// Package template loads and renders the named template files a
// route's template field resolves against, implementing
// pipeline.TemplateStore on top of the standard library's text/template.
package template
