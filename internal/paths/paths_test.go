package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPlatform swaps the platform lookups for the duration of a test.
func withPlatform(t *testing.T, goos, home, cwd string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })

	platformDir.goos = goos
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) {
		return filepath.Join(home, "Library", "Application Support"), nil
	}
	platformDir.getwd = func() (string, error) { return cwd, nil }
}

func TestDefaultConfigDir_Linux(t *testing.T) {
	withPlatform(t, "linux", "/home/pub", "/work")

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/genpub", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/pub/.config/genpub", got)
	})
}

func TestDefaultDataDir_Linux(t *testing.T) {
	withPlatform(t, "linux", "/home/pub", "/work")

	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	got, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-data/genpub", got)

	t.Setenv("XDG_DATA_HOME", "")
	got, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/pub/.local/share/genpub", got)
}

func TestDefaultDirs_Darwin(t *testing.T) {
	withPlatform(t, "darwin", "/Users/pub", "/work")

	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/Users/pub/Library/Application Support/genpub", cfg)

	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, cfg, data)
}

func TestDefaultConfigDir_HomeError(t *testing.T) {
	withPlatform(t, "linux", "", "/work")
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	cwd := t.TempDir()
	withPlatform(t, "linux", "/home/pub", cwd)
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name   string
		flag   string
		envVal string
		local  bool
		want   string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", true, "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", true, "/env/config"},
		{"project directory when present", "", "", true, filepath.Join(cwd, DefaultConfigDirName)},
		{"platform default otherwise", "", "", false, "/home/pub/.config/genpub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := filepath.Join(cwd, DefaultConfigDirName)
			if tt.local {
				require.NoError(t, os.MkdirAll(local, 0o755))
			} else {
				require.NoError(t, os.RemoveAll(local))
			}
			t.Setenv(EnvConfigDir, tt.envVal)

			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	withPlatform(t, "linux", "/home/pub", "/work")

	tests := []struct {
		name        string
		flag        string
		envVal      string
		configValue string
		want        string
	}{
		{"flag wins", "/flag/data", "/env/data", "/cfg/data", "/flag/data"},
		{"env beats config", "", "/env/data", "/cfg/data", "/env/data"},
		{"absolute config value", "", "", "/cfg/data", "/cfg/data"},
		{"relative config value", "", "", "db", "/etc/genpub/db"},
		{"working directory default", "", "", "", "/work/.genpub-db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue, "/etc/genpub")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	withPlatform(t, "linux", "/home/pub", "/work")
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	dirs, err := Resolve("/cfg", "", "data")
	require.NoError(t, err)
	assert.Equal(t, Dirs{Config: "/cfg", Data: "/cfg/data"}, dirs)
}

func TestResolve_RelativeFlagsAreAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	dirs, err := Resolve("rel-config", "rel-data", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dirs.Config))
	assert.True(t, filepath.IsAbs(dirs.Data))
	assert.Equal(t, "rel-data", filepath.Base(dirs.Data))
}
