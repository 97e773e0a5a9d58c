package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersistsNamespacedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyEula, "true"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "setting_eula"), string(raw))

	again, err := Open(path)
	require.NoError(t, err)
	v, ok := again.Get(KeyEula)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestOpenIgnoresForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("other = \"x\"\nsetting_bytecode = \"true\"\n"), 0o644))
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bytecode": "true"}, s.All())
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("= = ="), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestDefaultsAndPermalinking(t *testing.T) {
	s := New(nil)
	assert.False(t, s.AgreedEula.Value())
	assert.True(t, s.EnableTabs.Value())
	assert.True(t, s.SupportsPermalinking())

	require.NoError(t, s.Bytecode.Set(true))
	assert.False(t, s.SupportsPermalinking())

	require.NoError(t, s.DisplayLambdas.Set(true))
	require.NoError(t, s.ResetPermalinkAffecting())
	assert.False(t, s.DisplayLambdas.Value())
	assert.False(t, s.Bytecode.Value())
	assert.True(t, s.SupportsPermalinking())
}

func TestBooleanReadsStoredValue(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyEnableTabs, "false"))
	s := New(store)
	assert.False(t, s.EnableTabs.Value())

	b, ok := s.Boolean(KeyEnableTabs)
	require.True(t, ok)
	assert.Same(t, s.EnableTabs, b)
	_, ok = s.Boolean("missing")
	assert.False(t, ok)
}
