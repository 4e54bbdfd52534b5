package config

import (
	"fmt"
	"sort"
	"strings"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// DefaultPlugins are used when the project file lists none.
var DefaultPlugins = []string{"python.sphinx"}

// PluginsOrDefault returns the configured plugins or DefaultPlugins.
func (pf *ProjectFile) PluginsOrDefault() []string {
	if len(pf.Plugins) > 0 {
		return append([]string(nil), pf.Plugins...)
	}
	return append([]string(nil), DefaultPlugins...)
}

// Apply copies identity and properties from pf into p. Properties from the
// file replace host defaults.
func Apply(pf *ProjectFile, p *project.Project) {
	if pf.Name != "" {
		p.Name = pf.Name
	}
	if pf.Version != "" {
		p.Version = pf.Version
	}
	if len(pf.Authors) > 0 {
		p.Authors = append([]string(nil), pf.Authors...)
	}
	keys := make([]string, 0, len(pf.Properties))
	for k := range pf.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.SetProperty(k, pf.Properties[k])
	}
}

// ParseOverrides parses key=value pairs given on the command line.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, berrors.ValidationFailed("property", fmt.Sprintf("expected key=value, got %q", pair))
		}
		key = strings.TrimSpace(key)
		if err := ValidatePropertyKey(key); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// ApplyOverrides sets every override on p.
func ApplyOverrides(overrides map[string]string, p *project.Project) {
	for k, v := range overrides {
		p.SetProperty(k, v)
	}
}
