package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
)

// Registry manages plugin registration and discovery.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin to the registry.
// Returns an error if a plugin with the same name already exists.
func (r *Registry) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	metadata := plugin.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("plugin %s already registered as %s", metadata.Name, existing.Metadata())
	}

	r.plugins[metadata.Name] = plugin
	return nil
}

// Has reports whether a plugin is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, berrors.UnknownPlugin(name)
	}
	return plugin, nil
}

// List returns all registered plugins sorted by name.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		result = append(result, plugin)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Metadata().Name < result[j].Metadata().Name
	})
	return result
}

// Use applies the named plugins to lr, dependencies first. Each plugin is
// applied at most once. It returns the applied plugin names in order.
func (r *Registry) Use(lr *lifecycle.Registry, names ...string) ([]string, error) {
	applied := make(map[string]bool)
	inProgress := make(map[string]bool)
	var order []string

	var use func(name string, optional bool) error
	use = func(name string, optional bool) error {
		if applied[name] {
			return nil
		}
		if inProgress[name] {
			return fmt.Errorf("plugin dependency cycle at %s", name)
		}
		p, err := r.Get(name)
		if err != nil {
			if optional {
				slog.Debug("Skipping optional plugin", logfields.Plugin(name))
				return nil
			}
			return err
		}
		inProgress[name] = true
		for _, dep := range p.Metadata().Dependencies {
			if err := use(dep.Name, dep.Optional); err != nil {
				return err
			}
		}
		delete(inProgress, name)

		if err := p.Register(lr); err != nil {
			return fmt.Errorf("register plugin %s: %w", name, err)
		}
		applied[name] = true
		order = append(order, name)
		slog.Debug("Plugin applied", logfields.Plugin(p.Metadata().String()))
		return nil
	}

	for _, n := range names {
		if err := use(n, false); err != nil {
			return order, err
		}
	}
	return order, nil
}
