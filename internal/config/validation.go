package config

import (
	"fmt"
	"regexp"
	"strings"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
)

// propertyKey matches names usable in $name / ${name} references.
var propertyKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidatePropertyKey rejects keys that cannot be referenced from other
// property values.
func ValidatePropertyKey(key string) error {
	if !propertyKey.MatchString(key) {
		return berrors.ValidationFailed("properties", fmt.Sprintf("invalid property name %q", key))
	}
	return nil
}

// Validate checks plugin and task names and property keys.
func (pf *ProjectFile) Validate() error {
	seen := make(map[string]bool, len(pf.Plugins))
	for _, name := range pf.Plugins {
		if seen[name] {
			return berrors.ValidationFailed("plugins", fmt.Sprintf("plugin %q listed twice", name))
		}
		seen[name] = true
	}
	for _, task := range pf.DefaultTask {
		if strings.ContainsAny(task, " \t") {
			return berrors.ValidationFailed("default_task", fmt.Sprintf("task name %q contains whitespace", task))
		}
	}
	for key := range pf.Properties {
		if err := ValidatePropertyKey(key); err != nil {
			return err
		}
	}
	return nil
}
