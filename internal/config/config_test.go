package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "+01:00", cfg.ReferenceTimezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locale: nl-NL
reference_timezone: "+01:00"
api:
  base_url: https://api.example.test
  username: alice
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nl-NL", cfg.Locale)
	assert.Equal(t, "+01:00", cfg.ReferenceTimezone)
	assert.Equal(t, "Local", cfg.DisplayTimezone)
	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	assert.Equal(t, defaultLimit, cfg.API.Limit)
	assert.Equal(t, defaultBackfillDays, cfg.BackfillDays)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Nil(t, cfg.BasicAuth)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Locale = "de-DE"
	cfg.ShortTimeLayout = "15:04 Uhr"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceTimezone = "UTC+01:00"
	require.NoError(t, cfg.Validate())

	cfg.RefreshCron = "every five minutes"
	cfg.DisplayTimezone = "Mars/Olympus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh")
	assert.Contains(t, err.Error(), "display_timezone")
}

func TestLocations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceTimezone = "+02:00"
	cfg.DisplayTimezone = "UTC"

	ref, err := cfg.ReferenceLocation()
	require.NoError(t, err)
	assert.Equal(t, "+02:00", ref.String())

	disp, err := cfg.DisplayLocation()
	require.NoError(t, err)
	assert.Equal(t, "UTC", disp.String())
}
