package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// Example returns the starter project file written by Init.
func Example(name string) *ProjectFile {
	return &ProjectFile{
		Name:        name,
		Version:     project.DefaultVersion,
		DefaultTask: []string{"sphinx_generate_documentation"},
		Plugins:     append([]string(nil), DefaultPlugins...),
		Properties: map[string]any{
			"sphinx_builder":     "html",
			"sphinx_source_dir":  project.DefaultDocsDirectory,
			"sphinx_output_dir":  "_build/",
			"sphinx_config_path": project.DefaultDocsDirectory,
			"verbose":            false,
		},
	}
}

// Init writes an example project file to path, in the syntax its extension
// selects. An existing file is only replaced when force is set.
func Init(path, name string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return berrors.ValidationFailed("project_file", fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}

	data, err := Marshal(Example(name), FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return berrors.FileSystemError("write", path, err)
	}
	return nil
}

// Marshal encodes pf in format.
func Marshal(pf *ProjectFile, format Format) ([]byte, error) {
	if format == FormatTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(pf); err != nil {
			return nil, fmt.Errorf("failed to marshal toml project file: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(pf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal yaml project file: %w", err)
	}
	return data, nil
}
