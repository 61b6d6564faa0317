package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("ACCESSCTL_SERVER", "")
	t.Setenv("ACCESSCTL_API", "")
	t.Setenv("ACCESSCTL_TOKEN", "")
	return dir
}

func TestPath(t *testing.T) {
	dir := isolate(t)

	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, dirName, fileName), p)
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		isolate(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultServerURL, cfg.ServerURL)
		assert.Equal(t, DefaultAPIURL, cfg.APIURL)
		assert.False(t, cfg.HasToken())
	})

	t.Run("round trip through Save", func(t *testing.T) {
		isolate(t)

		require.NoError(t, Save(&Config{ServerURL: "https://codes.example", APIURL: "https://api.example", Token: "tok"}))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://codes.example", cfg.ServerURL)
		assert.Equal(t, "https://api.example", cfg.APIURL)
		assert.True(t, cfg.HasToken())
	})

	t.Run("env overrides file", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Save(&Config{ServerURL: "https://codes.example", Token: "file-token"}))

		t.Setenv("ACCESSCTL_SERVER", "https://override.example")
		t.Setenv("ACCESSCTL_TOKEN", "env-token")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://override.example", cfg.ServerURL)
		assert.Equal(t, DefaultAPIURL, cfg.APIURL)
		assert.Equal(t, "env-token", cfg.Token)
	})

	t.Run("corrupt file", func(t *testing.T) {
		isolate(t)
		p, err := Path()
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), dirPerms))
		require.NoError(t, os.WriteFile(p, []byte("{not json"), filePerms))

		_, err = Load()
		assert.Error(t, err)
	})
}

func TestSave_FilePermissions(t *testing.T) {
	isolate(t)
	require.NoError(t, Save(&Config{Token: "secret"}))

	p, err := Path()
	require.NoError(t, err)
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())
}

func TestClear(t *testing.T) {
	isolate(t)

	assert.NoError(t, Clear(), "clearing a missing file is fine")

	require.NoError(t, Save(&Config{Token: "tok"}))
	require.NoError(t, Clear())

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.HasToken())
}
