package base

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, 1280, settings.Width)
	assert.Equal(t, 720, settings.Height)
	assert.False(t, settings.Validation)
	assert.False(t, settings.VSync)
	assert.True(t, settings.Overlay)
	assert.Equal(t, "data", settings.AssetPath)
	assert.Equal(t, "info", settings.LogLevel)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	contents := `
width = 1920
height = 1080
validation = true
asset_path = "/opt/assets"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 1920, settings.Width)
	assert.Equal(t, 1080, settings.Height)
	assert.True(t, settings.Validation)
	assert.Equal(t, "/opt/assets", settings.AssetPath)

	// Untouched keys keep their defaults.
	assert.True(t, settings.Overlay)
	assert.Equal(t, "info", settings.LogLevel)
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = }"), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestParseCommandLineFlags(t *testing.T) {
	settings, err := ParseCommandLine([]string{
		"--validation",
		"--vsync",
		"--no-overlay",
		"--width", "800",
		"--height", "600",
		"--assets", "/tmp/assets",
	})
	require.NoError(t, err)

	assert.True(t, settings.Validation)
	assert.True(t, settings.VSync)
	assert.False(t, settings.Overlay)
	assert.Equal(t, 800, settings.Width)
	assert.Equal(t, 600, settings.Height)
	assert.Equal(t, "/tmp/assets", settings.AssetPath)
}

func TestParseCommandLineFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = 1920\nvsync = true\n"), 0o644))

	settings, err := ParseCommandLine([]string{"--config", path, "--width", "640"})
	require.NoError(t, err)

	// The flag wins over the file, the file wins over the default.
	assert.Equal(t, 640, settings.Width)
	assert.True(t, settings.VSync)
}

func TestParseCommandLineBadValue(t *testing.T) {
	_, err := ParseCommandLine([]string{"--width", "lots"})
	assert.Error(t, err)
}
