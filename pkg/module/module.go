package module

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/route"
)

var (
	ErrDuplicate = errors.New("module: duplicate registration")
	ErrDiscover  = errors.New("module: discovery failed")
)

// Module is an installed extension contributing a route fragment.
// Modules that also serve their own controllers implement
// Targets(*gatehouse.Targets) and register them under their name.
type Module interface {
	Name() string
	Routes() []route.Entry
}

// Factory creates a module with no arguments.
type Factory func() Module

// Registry maps module names to factories.
type Registry struct {
	factories map[string]Factory
	dupes     []string
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default is the registry used by Register and Discover.
var Default = NewRegistry()

// Register adds a factory to the Default registry. Call it from init.
func Register(name string, f Factory) {
	Default.Register(name, f)
}

// Discover runs discovery against the Default registry.
func Discover(fsys fs.FS, dir string, log *slog.Logger) ([]Installed, error) {
	return Default.Discover(fsys, dir, log)
}

// Register makes f available under name. A second registration under the
// same name is kept out and reported by Discover.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok || f == nil {
		r.dupes = append(r.dupes, name)
		return
	}
	r.factories[name] = f
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Installed is a discovered module and the routes it contributed.
type Installed struct {
	Module Module
	Name   string
	Routes []route.Entry
}

// Discover lists the subdirectories of dir in fsys in lexical order and
// instantiates the registered module for each. A missing dir means no
// modules are installed.
func (r *Registry) Discover(fsys fs.FS, dir string, log *slog.Logger) ([]Installed, error) {
	if log == nil {
		log = logger.NewNope()
	}
	if dir == "" {
		dir = "."
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.dupes) > 0 {
		names := slices.Compact(slices.Sorted(slices.Values(r.dupes)))
		return nil, fmt.Errorf("%w: %v", ErrDuplicate, names)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("modules directory not found", slog.String("dir", dir))
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrDiscover, err)
	}

	var installed []Installed
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		factory, ok := r.factories[name]
		if !ok {
			log.Warn("skipping module without registered factory", slog.String("module", name))
			continue
		}

		m := factory()
		if m == nil {
			log.Warn("module factory returned nil", slog.String("module", name))
			continue
		}
		routes := m.Routes()
		installed = append(installed, Installed{Module: m, Name: name, Routes: routes})
		log.Debug("module installed", slog.String("module", name), slog.Int("routes", len(routes)))
	}
	return installed, nil
}

// Fragments returns the route fragments of installed modules, in order,
// ready for route.Merge.
func Fragments(installed []Installed) [][]route.Entry {
	out := make([][]route.Entry, 0, len(installed))
	for _, m := range installed {
		out = append(out, m.Routes)
	}
	return out
}
