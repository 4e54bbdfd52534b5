package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// mockPlugin registers one task named after itself and logs its registration.
type mockPlugin struct {
	metadata PluginMetadata
	log      *[]string
	err      error
}

func (m *mockPlugin) Metadata() PluginMetadata { return m.metadata }

func (m *mockPlugin) Register(r *lifecycle.Registry) error {
	if m.err != nil {
		return m.err
	}
	*m.log = append(*m.log, m.metadata.Name)
	return r.Task(lifecycle.Task{
		Name: "task-" + m.metadata.Name,
		Run:  func(context.Context, *project.Project) error { return nil },
	})
}

func newMockPlugin(log *[]string, name string, deps ...PluginDependency) *mockPlugin {
	return &mockPlugin{
		metadata: PluginMetadata{Name: name, Version: "v1.0.0", Dependencies: deps},
		log:      log,
	}
}

// TestRegistryRegister tests plugin registration.
func TestRegistryRegister(t *testing.T) {
	var log []string
	registry := NewRegistry()

	plugin := newMockPlugin(&log, "test-plugin")

	if err := registry.Register(plugin); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !registry.Has("test-plugin") {
		t.Error("Plugin should be registered")
	}
	if err := registry.Register(plugin); err == nil {
		t.Error("Should not allow duplicate registration")
	}
}

// TestRegistryRegisterInvalid tests registering nil and malformed plugins.
func TestRegistryRegisterInvalid(t *testing.T) {
	var log []string
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&mockPlugin{metadata: PluginMetadata{Version: "v1"}, log: &log}))
	assert.Error(t, registry.Register(&mockPlugin{metadata: PluginMetadata{Name: "x"}, log: &log}))
	assert.Error(t, registry.Register(newMockPlugin(&log, "self", PluginDependency{Name: "self"})))
}

func TestRegistryGetAndList(t *testing.T) {
	var log []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockPlugin(&log, "b")))
	require.NoError(t, registry.Register(newMockPlugin(&log, "a")))

	p, err := registry.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a@v1.0.0", p.Metadata().String())

	_, err = registry.Get("zzz")
	assert.Error(t, err)

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Metadata().Name)
	assert.Equal(t, "b", list[1].Metadata().Name)
}

func TestRegistryUse_DependenciesFirstOnce(t *testing.T) {
	var log []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockPlugin(&log, "core")))
	require.NoError(t, registry.Register(newMockPlugin(&log, "python.sphinx",
		PluginDependency{Name: "core"},
		PluginDependency{Name: "python.theme", Optional: true},
	)))

	lr := lifecycle.NewRegistry()
	order, err := registry.Use(lr, "python.sphinx", "core")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "python.sphinx"}, order)
	assert.Equal(t, []string{"core", "python.sphinx"}, log)
	assert.True(t, lr.Has("task-core"))
	assert.True(t, lr.Has("task-python.sphinx"))
}

func TestRegistryUse_Errors(t *testing.T) {
	var log []string
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockPlugin(&log, "needs-missing", PluginDependency{Name: "missing"})))
	broken := newMockPlugin(&log, "broken")
	broken.err = errors.New("boom")
	require.NoError(t, registry.Register(broken))

	_, err := registry.Use(lifecycle.NewRegistry(), "needs-missing")
	assert.Error(t, err)

	_, err = registry.Use(lifecycle.NewRegistry(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register plugin broken")
}
