// Package config loads the project file (build.yaml or build.toml) that
// describes a sphinxctl project.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
)

// DefaultProjectFile is the project file looked up when none is given.
const DefaultProjectFile = "build.yaml"

// ProjectFile is the on-disk project description.
type ProjectFile struct {
	Name        string         `yaml:"name,omitempty" toml:"name,omitempty"`
	Version     string         `yaml:"version,omitempty" toml:"version,omitempty"`
	Authors     []string       `yaml:"authors,omitempty" toml:"authors,omitempty"`
	DefaultTask []string       `yaml:"default_task,omitempty" toml:"default_task,omitempty"`
	Plugins     []string       `yaml:"plugins,omitempty" toml:"plugins,omitempty"`
	Properties  map[string]any `yaml:"properties,omitempty" toml:"properties,omitempty"`
}

// Format is a project file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the syntax from the file extension; anything but .toml is YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// envRef matches ${VAR} environment references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} with the value of a set environment variable.
// References to unset variables and bare $name forms are kept, since
// property values use them to refer to other properties.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := os.LookupEnv(m[2 : len(m)-1]); ok {
			return v
		}
		return m
	})
}

// Load reads and validates the project file at path. A .env file next to it
// is loaded first, and ${VAR} references in the file are expanded from the
// environment.
func Load(path string) (*ProjectFile, error) {
	if err := loadEnvFile(filepath.Dir(path)); err != nil {
		return nil, berrors.ConfigInvalid(path, err)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, berrors.ConfigNotFound(path)
		}
		return nil, berrors.FileSystemError("read", path, err)
	}

	pf, err := Parse([]byte(ExpandEnv(string(data))), FormatOf(path))
	if err != nil {
		return nil, berrors.ConfigInvalid(path, err)
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return pf, nil
}

// Parse decodes a project file and normalises its lists. Unknown top-level
// YAML keys are rejected.
func Parse(data []byte, format Format) (*ProjectFile, error) {
	var pf ProjectFile
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal toml project file: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to unmarshal yaml project file: %w", err)
		}
	}
	pf.normalize()
	return &pf, nil
}

func (pf *ProjectFile) normalize() {
	pf.Name = strings.TrimSpace(pf.Name)
	pf.Version = strings.TrimSpace(pf.Version)
	pf.Authors = trimAll(pf.Authors)
	pf.DefaultTask = trimAll(pf.DefaultTask)
	pf.Plugins = trimAll(pf.Plugins)
}

// trimAll trims every element and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
