package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := New(t.TempDir(), "demo")
	require.NoError(t, err)
	return p
}

func TestNew_HostDefaults(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(dir), p.Name)
	assert.True(t, filepath.IsAbs(p.BaseDir))
	assert.Equal(t, "target", p.GetString(PropDirTarget))
	assert.Equal(t, "docs", p.GetString(PropDirDocs))
	assert.False(t, p.GetBool(PropVerbose))
}

func TestSetPropertyIfUnset(t *testing.T) {
	p := newTestProject(t)

	p.SetPropertyIfUnset("sphinx_builder", "html")
	assert.Equal(t, "html", p.GetString("sphinx_builder"))

	// Idempotent and never overrides an existing value.
	p.SetPropertyIfUnset("sphinx_builder", "latex")
	p.SetPropertyIfUnset("sphinx_builder", "html")
	assert.Equal(t, "html", p.GetString("sphinx_builder"))

	p.SetProperty("sphinx_output_dir", "out")
	p.SetPropertyIfUnset("sphinx_output_dir", "_build/")
	assert.Equal(t, "out", p.GetString("sphinx_output_dir"))
}

func TestGetBool(t *testing.T) {
	p := newTestProject(t)
	cases := map[string]struct {
		value any
		want  bool
	}{
		"bool true":    {true, true},
		"string true":  {"true", true},
		"string yes":   {"yes", true},
		"string 1":     {"1", true},
		"string false": {"false", false},
		"garbage":      {"maybe", false},
		"int":          {1, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p.SetProperty("flag", tc.value)
			assert.Equal(t, tc.want, p.GetBool("flag"))
		})
	}
	assert.False(t, p.GetBool("missing"))
}

func TestExpand(t *testing.T) {
	p := newTestProject(t)

	assert.Equal(t, "target/reports", p.Expand("$dir_reports"))
	assert.Equal(t, "target/reports/x", p.Expand("${dir_reports}/x"))
	assert.Equal(t, "plain", p.Expand("plain"))
}

func TestExpand_UnknownReferencesKeepTheirText(t *testing.T) {
	p := newTestProject(t)

	assert.Equal(t, "$nope/x", p.Expand("$nope/x"))
	assert.Equal(t, "${nope}/x", p.Expand("${nope}/x"))
	assert.Equal(t, "cost $5 and $ alone", p.Expand("cost $5 and $ alone"))
	assert.Equal(t, "$nope/target", p.Expand("$nope/$dir_target"))
}

func TestExpand_SelfReferenceTerminates(t *testing.T) {
	p := newTestProject(t)
	p.SetProperty("loop", "$loop/a")

	// Bounded expansion; the exact result is not important, only termination.
	assert.NotEmpty(t, p.Expand("$loop"))
}

func TestExpandPath(t *testing.T) {
	p := newTestProject(t)

	assert.Equal(t, filepath.Join(p.BaseDir, "docs"), p.ExpandPath("docs"))
	assert.Equal(t, filepath.Join(p.BaseDir, "_build"), p.ExpandPath("_build/"))
	assert.Equal(t, filepath.Join(p.BaseDir, "target", "reports", "sphinx-build"),
		p.ExpandPath("$dir_reports", "sphinx-build"))

	abs := filepath.Join(t.TempDir(), "elsewhere")
	assert.Equal(t, abs, p.ExpandPath(abs))
}

func TestDecode(t *testing.T) {
	p := newTestProject(t)
	p.SetProperty("verbose", "true")
	p.SetProperty("retries", "3")

	var view struct {
		Verbose bool   `mapstructure:"verbose"`
		Retries int    `mapstructure:"retries"`
		Target  string `mapstructure:"dir_target"`
	}
	require.NoError(t, p.Decode(&view))
	assert.True(t, view.Verbose)
	assert.Equal(t, 3, view.Retries)
	assert.Equal(t, "target", view.Target)
}

func TestDecode_LooseValues(t *testing.T) {
	p := newTestProject(t)
	p.SetProperty("verbose", "yes")
	p.SetProperty("quiet", "nonsense")
	p.SetProperty("patterns", []any{"**/*.rst", "conf.py"})

	var view struct {
		Verbose  bool   `mapstructure:"verbose"`
		Quiet    bool   `mapstructure:"quiet"`
		Patterns string `mapstructure:"patterns"`
	}
	require.NoError(t, p.Decode(&view))
	assert.True(t, view.Verbose)
	assert.Equal(t, p.GetBool("quiet"), view.Quiet)
	assert.Equal(t, "**/*.rst conf.py", view.Patterns)
}

func TestBuildDependsOn(t *testing.T) {
	p := newTestProject(t)
	p.BuildDependsOn("sphinx")
	p.BuildDependsOn("sphinx")
	p.BuildDependsOn("sphinx-rtd-theme")

	assert.Equal(t, []string{"sphinx", "sphinx-rtd-theme"}, p.BuildDependencies())
}

func TestVersionOrDefault(t *testing.T) {
	p := newTestProject(t)
	assert.Equal(t, DefaultVersion, p.VersionOrDefault())
	p.Version = "2.0"
	assert.Equal(t, "2.0", p.VersionOrDefault())
}
