// Package plugin provides the plugin system for the build host. A plugin
// contributes initializers, tasks and hooks to a lifecycle.Registry.
package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
)

// Plugin is a named bundle of lifecycle registrations.
type Plugin interface {
	// Metadata returns the plugin's metadata (name, version, dependencies).
	Metadata() PluginMetadata

	// Register adds the plugin's initializers, tasks and hooks.
	Register(r *lifecycle.Registry) error
}

// PluginMetadata describes a plugin's identity and requirements.
type PluginMetadata struct {
	// Name is the unique plugin identifier (e.g., "core", "python.sphinx").
	Name string

	// Version is the semantic version (e.g., "v1.0.0").
	Version string

	// Description provides a human-readable summary of the plugin's purpose.
	Description string

	// Author is the plugin creator or maintainer.
	Author string

	// Dependencies lists other plugins this plugin requires.
	Dependencies []PluginDependency
}

// PluginDependency describes a required or optional plugin dependency.
type PluginDependency struct {
	// Name is the required plugin name.
	Name string

	// Optional dependencies are applied when registered and skipped otherwise.
	Optional bool
}

// String returns a human-readable representation of the plugin metadata.
func (m PluginMetadata) String() string {
	return fmt.Sprintf("%s@%s", m.Name, m.Version)
}

// Validate checks if the plugin metadata is valid.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	for _, d := range m.Dependencies {
		if d.Name == m.Name {
			return fmt.Errorf("plugin %s depends on itself", m.Name)
		}
	}
	return nil
}
