package template

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

//go:embed builtin/*.json
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinReg  *Registry
	builtinErr  error
)

// Registry maps scenario ids to templates.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Add registers t under its scenario id, replacing any previous template.
func (r *Registry) Add(t *Template) {
	r.templates[t.ScenarioID] = t
}

// Get returns the template of a scenario.
func (r *Registry) Get(scenario string) (*Template, error) {
	t, ok := r.templates[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: scenario %q", internalerr.ErrTemplateNotFound, scenario)
	}
	return t, nil
}

// Scenarios lists the registered scenario ids in sorted order.
func (r *Registry) Scenarios() []string {
	out := make([]string, 0, len(r.templates))
	for id := range r.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns a registry holding the same templates.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for id, t := range r.templates {
		c.templates[id] = t
	}
	return c
}

// LoadDir adds every .json, .yaml and .yml template in dir. The scenario
// id inside the file must match the file name.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read templates dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if want := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())); t.ScenarioID != want {
			return fmt.Errorf("%w: template %s declares scenario %q", internalerr.ErrInvalidConfig, e.Name(), t.ScenarioID)
		}
		r.Add(t)
	}
	return nil
}

// Builtins returns the registry of embedded templates. Callers that want
// to add templates should Clone it first.
func Builtins() (*Registry, error) {
	builtinOnce.Do(func() {
		builtinReg, builtinErr = loadBuiltins()
	})
	return builtinReg, builtinErr
}

// Builtin returns the embedded template of a scenario.
func Builtin(scenario string) (*Template, error) {
	reg, err := Builtins()
	if err != nil {
		return nil, err
	}
	return reg.Get(scenario)
}

func loadBuiltins() (*Registry, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, err
		}
		t, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", e.Name(), err)
		}
		reg.Add(t)
	}
	return reg, nil
}
