package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrefersExplicitThenXDG(t *testing.T) {
	got, err := ResolvePath("/tmp/custom.conf")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.conf", got)

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/xdg", "rhea", "config.conf"), got)
}

func TestStateDirPrefersXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/state", "rhea"), dir)
}

func TestLoadMissingFileUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Len(t, loaded.Warnings, 1)
	require.Equal(t, Default().Bridge, loaded.Config.Bridge)
	require.NotEmpty(t, loaded.Config.Paths.Vocabulary)
	require.NotEmpty(t, loaded.Config.Paths.VoiceLog)
}

func TestLoadParsesExistingFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{"provider":{"name":"local"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "local", loaded.Config.Provider.Name)
	require.NotEmpty(t, loaded.Config.Paths.ReplayCases)
}
