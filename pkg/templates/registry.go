package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
)

// OverridesFile is the optional marker definition file in the control directory
const OverridesFile = "markers.yaml"

// Registry maps marker names to template files under a control directory
type Registry struct {
	mu        sync.RWMutex
	templates map[string]cv.Template
	preload   map[string]bool
	basePath  string
}

// MarkerDefinition represents a marker in the YAML file
type MarkerDefinition struct {
	Name      string     `yaml:"name"`
	Path      string     `yaml:"path"`
	Threshold float64    `yaml:"threshold,omitempty"`
	Scales    []float64  `yaml:"scales,omitempty"`
	Region    *RegionDef `yaml:"region,omitempty"`
	Preload   bool       `yaml:"preload,omitempty"`
}

// RegionDef represents a region in the YAML file
type RegionDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// MarkerFile represents the structure of a marker YAML file
type MarkerFile struct {
	Markers []MarkerDefinition `yaml:"markers"`
}

// NewRegistry creates a registry rooted at the control directory, holding
// the built-in markers
func NewRegistry(basePath string) *Registry {
	r := &Registry{
		templates: make(map[string]cv.Template),
		preload:   make(map[string]bool),
		basePath:  basePath,
	}
	for _, def := range builtins {
		r.add(def)
	}
	return r
}

// BasePath returns the control directory
func (r *Registry) BasePath() string {
	return r.basePath
}

func (r *Registry) add(def MarkerDefinition) {
	t := cv.Template{
		Name:      def.Name,
		Path:      filepath.Join(r.basePath, filepath.FromSlash(def.Path)),
		Threshold: def.Threshold,
		Scales:    append([]float64(nil), def.Scales...),
	}
	if def.Region != nil {
		t = t.Within(cv.Region{X1: def.Region.X1, Y1: def.Region.Y1, X2: def.Region.X2, Y2: def.Region.Y2})
	}
	r.templates[def.Name] = t
	if def.Preload {
		r.preload[def.Name] = true
	}
}

// LoadFromFile merges marker definitions from a YAML file. Definitions
// replace built-ins of the same name.
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read marker file %s: %w", filePath, err)
	}

	var file MarkerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal marker YAML: %w", err)
	}

	for i, def := range file.Markers {
		if def.Name == "" {
			return fmt.Errorf("marker %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("marker %d (%s): path cannot be empty", i+1, def.Name)
		}
		if def.Threshold < 0 || def.Threshold > 1 {
			return fmt.Errorf("marker %d (%s): threshold %.2f out of range", i+1, def.Name, def.Threshold)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range file.Markers {
		r.add(def)
	}
	return nil
}

// LoadOverrides merges <control>/markers.yaml when it exists
func (r *Registry) LoadOverrides() (bool, error) {
	path := filepath.Join(r.basePath, OverridesFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := r.LoadFromFile(path); err != nil {
		return false, err
	}
	return true, nil
}

// Get retrieves a marker by name
func (r *Registry) Get(name string) (cv.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// MustGet retrieves a marker by name and panics if not found
// Use this only for built-in names
func (r *Registry) MustGet(name string) cv.Template {
	t, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("marker '%s' not found in registry", name))
	}
	return t
}

// GetOrDefault retrieves a marker, or addresses <control>/<name>.png when it
// is not registered
func (r *Registry) GetOrDefault(name string) cv.Template {
	if t, ok := r.Get(name); ok {
		return t
	}
	return cv.Template{Name: name, Path: filepath.Join(r.basePath, name+".png")}
}

// Register adds a marker programmatically
func (r *Registry) Register(t cv.Template) error {
	if t.Name == "" {
		return fmt.Errorf("marker name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
	return nil
}

// Has checks if a marker exists in the registry
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all marker names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered markers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// Remove removes a marker from the registry
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[name]; !ok {
		return false
	}
	delete(r.templates, name)
	delete(r.preload, name)
	return true
}

// Preload loads every marker flagged for preloading into cache. Failures are
// returned together; the remaining markers still load.
func (r *Registry) Preload(cache *cv.TemplateCache) (int, error) {
	r.mu.RLock()
	paths := make([]string, 0, len(r.preload))
	for name := range r.preload {
		if t, ok := r.templates[name]; ok {
			paths = append(paths, t.Path)
		}
	}
	r.mu.RUnlock()
	sort.Strings(paths)

	loaded := 0
	var errs []error
	for _, p := range paths {
		if _, err := cache.Get(p); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}
