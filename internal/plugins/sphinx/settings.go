package sphinx

import (
	"strings"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// Property names read by the plugin.
const (
	PropBuilder              = "sphinx_builder"
	PropSourceDir            = "sphinx_source_dir"
	PropOutputDir            = "sphinx_output_dir"
	PropConfigPath           = "sphinx_config_path"
	PropQuickstartExecutable = "sphinx_quickstart_executable"
	PropBuildExecutable      = "sphinx_build_executable"
	PropWatchPatterns        = "sphinx_watch_patterns"
)

const (
	DefaultBuilder   = "html"
	DefaultOutputDir = "_build/"

	QuickstartExecutable = "sphinx-quickstart"
	BuildExecutable      = "sphinx-build"

	// BuildDependency is the distribution recorded with Project.BuildDependsOn.
	BuildDependency = "sphinx"
)

// DefaultWatchPatterns are the source globs the watch command reacts to.
var DefaultWatchPatterns = []string{"**/*.rst", "**/*.md", "**/*.py", "**/*.txt"}

// Settings is the typed view of the plugin's properties.
type Settings struct {
	Builder              string `mapstructure:"sphinx_builder"`
	SourceDir            string `mapstructure:"sphinx_source_dir"`
	OutputDir            string `mapstructure:"sphinx_output_dir"`
	ConfigPath           string `mapstructure:"sphinx_config_path"`
	QuickstartExecutable string `mapstructure:"sphinx_quickstart_executable"`
	BuildExecutable      string `mapstructure:"sphinx_build_executable"`
	WatchPatterns        string `mapstructure:"sphinx_watch_patterns"`
	Verbose              bool   `mapstructure:"verbose"`
}

// Initialize records the sphinx build dependency and fills every unset
// plugin property with its default. Calling it again changes nothing.
func Initialize(p *project.Project) error {
	p.BuildDependsOn(BuildDependency)
	p.SetPropertyIfUnset(PropBuilder, DefaultBuilder)
	p.SetPropertyIfUnset(PropSourceDir, project.DefaultDocsDirectory)
	p.SetPropertyIfUnset(PropOutputDir, DefaultOutputDir)
	p.SetPropertyIfUnset(PropConfigPath, project.DefaultDocsDirectory)
	p.SetPropertyIfUnset(PropQuickstartExecutable, QuickstartExecutable)
	p.SetPropertyIfUnset(PropBuildExecutable, BuildExecutable)
	p.SetPropertyIfUnset(PropWatchPatterns, strings.Join(DefaultWatchPatterns, " "))
	return nil
}

// Load decodes the plugin's settings from p. List-valued watch patterns are
// joined, and verbose accepts the same spellings as Project.GetBool.
func Load(p *project.Project) (Settings, error) {
	var s Settings
	if err := p.Decode(&s); err != nil {
		return Settings{}, berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityFatal, "invalid sphinx properties")
	}
	return s, nil
}

// Patterns splits WatchPatterns on whitespace and commas.
func (s Settings) Patterns() []string {
	return strings.FieldsFunc(s.WatchPatterns, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func (s Settings) quickstartExecutable() string {
	return orDefault(s.QuickstartExecutable, QuickstartExecutable)
}

func (s Settings) buildExecutable() string {
	return orDefault(s.BuildExecutable, BuildExecutable)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
