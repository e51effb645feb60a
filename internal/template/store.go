package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/nerrad/warnbridge/internal/textsubst"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store loads every "*.tmpl" file under a directory once at startup and
// implements pipeline.TemplateStore against the parsed set. A route
// names a template by its base filename, without the ".tmpl" suffix.
//
// Built once; immutable and safe for concurrent Render calls from every
// dispatch worker goroutine.
type Store struct {
	templates map[string]*texttemplate.Template
	logger    Logger
}

// funcs are made available inside every loaded template.
var funcs = texttemplate.FuncMap{
	// render applies the same scalar/JSON formatting rules textsubst
	// uses for "{name}"-style placeholders, so a value formats
	// identically whether it reaches the operator through a template or
	// through format_spec.
	"render": textsubst.RenderValue,
}

// Load parses every "*.tmpl" file directly under dir. An empty dir
// yields an empty, valid Store: routes with no template field never
// call Render, so this is not an error.
func Load(dir string, logger Logger) (*Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Store{templates: make(map[string]*texttemplate.Template), logger: logger}
	if dir == "" {
		return s, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("template directory does not exist, no templates loaded", "dir", dir)
			return s, nil
		}
		return nil, fmt.Errorf("reading template directory %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		path := filepath.Join(dir, entry.Name())

		body, err := os.ReadFile(path) //nolint:gosec // path is built from a trusted config directory, not user input
		if err != nil {
			return nil, fmt.Errorf("reading template %q: %w", path, err)
		}

		tmpl, err := texttemplate.New(name).Funcs(funcs).Parse(string(body))
		if err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", path, err)
		}
		s.templates[name] = tmpl
		logger.Debug("loaded template", "name", name, "path", path)
	}

	return s, nil
}

// Render implements pipeline.TemplateStore.
func (s *Store) Render(name string, ctx map[string]any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not loaded", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return buf.String(), nil
}

// Len returns the number of loaded templates.
func (s *Store) Len() int {
	return len(s.templates)
}
