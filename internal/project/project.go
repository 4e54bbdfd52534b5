// Package project holds the build project model: identity, base directory and
// the property store that plugins read their settings from.
package project

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Host-level property names and their defaults.
const (
	PropDirTarget  = "dir_target"
	PropDirReports = "dir_reports"
	PropDirDocs    = "dir_docs"
	PropVerbose    = "verbose"

	// DefaultDocsDirectory is where scaffolded documentation lives by default.
	DefaultDocsDirectory = "docs"
	DefaultVersion       = "1.0.dev0"
	DefaultAuthor        = "unknown"
)

// maxExpandDepth bounds nested $property references.
const maxExpandDepth = 10

// Project is a build project rooted at BaseDir.
type Project struct {
	Name    string
	Version string
	Authors []string
	BaseDir string

	mu         sync.RWMutex
	properties map[string]any
	buildDeps  []string
}

// New creates a project rooted at baseDir (made absolute) with host defaults.
// name falls back to the base directory's name when empty.
func New(baseDir, name string) (*Project, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	p := &Project{
		Name:       name,
		BaseDir:    abs,
		properties: make(map[string]any),
	}
	p.SetPropertyIfUnset(PropDirTarget, "target")
	p.SetPropertyIfUnset(PropDirReports, "$"+PropDirTarget+"/reports")
	p.SetPropertyIfUnset(PropDirDocs, DefaultDocsDirectory)
	p.SetPropertyIfUnset(PropVerbose, false)
	return p, nil
}

// SetProperty stores value under key, replacing any previous value.
func (p *Project) SetProperty(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.properties[key] = value
}

// SetPropertyIfUnset stores value only when key has no value yet. Calling it
// again with the same key never changes the stored value.
func (p *Project) SetPropertyIfUnset(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.properties[key]; !ok {
		p.properties[key] = value
	}
}

// HasProperty reports whether key has a value.
func (p *Project) HasProperty(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.properties[key]
	return ok
}

// GetProperty returns the raw value for key.
func (p *Project) GetProperty(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.properties[key]
	return v, ok
}

// GetString returns key rendered as a string, or "" when unset.
func (p *Project) GetString(key string) string {
	v, ok := p.GetProperty(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool interprets key as a boolean. Strings such as "true", "1", "yes"
// and "on" count as true; anything unparsable is false.
func (p *Project) GetBool(key string) bool {
	v, ok := p.GetProperty(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return parseBool(b)
	case int:
		return b != 0
	default:
		return false
	}
}

// parseBool accepts strconv.ParseBool's forms plus "yes" and "on".
func parseBool(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "yes", "on":
		return true
	}
	parsed, err := strconv.ParseBool(s)
	return err == nil && parsed
}

// PropertyKeys returns all property names in sorted order.
func (p *Project) PropertyKeys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.properties))
	for k := range p.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Properties returns a copy of the property map.
func (p *Project) Properties() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.properties))
	for k, v := range p.properties {
		out[k] = v
	}
	return out
}

// Decode fills target (a struct pointer with mapstructure tags) from the
// property store, converting scalar types where needed.
func (p *Project) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToBoolHook,
			sliceToStringHook,
		),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("create property decoder: %w", err)
	}
	if err := dec.Decode(p.Properties()); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	return nil
}

// stringToBoolHook decodes string properties into bool fields the way
// GetBool reads them.
func stringToBoolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	return parseBool(data.(string)), nil
}

// sliceToStringHook joins list properties (e.g. a YAML sequence) with spaces
// when the field is a string.
func sliceToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || (from.Kind() != reflect.Slice && from.Kind() != reflect.Array) {
		return data, nil
	}
	v := reflect.ValueOf(data)
	parts := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		parts = append(parts, fmt.Sprint(v.Index(i).Interface()))
	}
	return strings.Join(parts, " "), nil
}

// propertyRef matches $name and ${name}.
var propertyRef = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Expand replaces $name and ${name} references with property values.
// Nested references are expanded. Unknown references keep their exact text.
func (p *Project) Expand(format string) string {
	out := format
	for i := 0; i < maxExpandDepth && strings.Contains(out, "$"); i++ {
		next := propertyRef.ReplaceAllStringFunc(out, func(ref string) string {
			m := propertyRef.FindStringSubmatch(ref)
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if v, ok := p.GetProperty(name); ok {
				return fmt.Sprint(v)
			}
			return ref
		})
		if next == out {
			break
		}
		out = next
	}
	return out
}

// ExpandPath expands format, appends parts, and resolves the result against
// BaseDir. The returned path is always absolute and clean.
func (p *Project) ExpandPath(format string, parts ...string) string {
	elems := append([]string{p.Expand(format)}, parts...)
	joined := filepath.Join(elems...)
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(p.BaseDir, joined)
	}
	return filepath.Clean(joined)
}

// BuildDependsOn records an external build dependency (e.g. a Python
// distribution the build environment must provide).
func (p *Project) BuildDependsOn(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.buildDeps {
		if d == name {
			return
		}
	}
	p.buildDeps = append(p.buildDeps, name)
}

// BuildDependencies lists recorded build dependencies in registration order.
func (p *Project) BuildDependencies() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.buildDeps...)
}

// VersionOrDefault returns Version, or DefaultVersion when empty.
func (p *Project) VersionOrDefault() string {
	if p.Version != "" {
		return p.Version
	}
	return DefaultVersion
}
