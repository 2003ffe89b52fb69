package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHome points the user config lookup at a fresh temp dir.
func mockHome(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	original := osUserHomeDir
	osUserHomeDir = func() (string, error) { return tempDir, nil }
	t.Cleanup(func() { osUserHomeDir = original })
	return tempDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	home := mockHome(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "apache2", cfg.Service.Name)
	assert.Equal(t, "systemctl", cfg.Service.Manager)
	assert.Equal(t, "sudo", cfg.Elevation.Binary)
	assert.Equal(t, "socat", cfg.Relay.Binary)
	assert.Equal(t, 1024, cfg.Relay.PrivilegedPortThreshold)
	assert.Equal(t, time.Second, cfg.Relay.StopGrace)
	assert.Equal(t, "/var/www/html", cfg.Page.Dir)
	assert.Equal(t, filepath.Join(home, userConfigDir, "journal.db"), cfg.Journal.Path)
	assert.Equal(t, filepath.Join(home, userConfigDir, "portpanel.log"), cfg.Log.File)
	assert.Empty(t, cfg.Rules)
}

func TestLoadConfig_UserThenExplicit(t *testing.T) {
	home := mockHome(t)
	writeFile(t, filepath.Join(home, userConfigDir, configFileName), `
service:
  name: httpd
relay:
  stop_grace: 3s
rules:
  - listen: 8080
    host: 10.0.0.5
    port: 80
`)
	explicit := filepath.Join(t.TempDir(), "panel.yaml")
	writeFile(t, explicit, `
service:
  display_name: Web
relay:
  privileged_port_threshold: 512
rules:
  - listen: 8443
    host: example.com
    port: 443
`)

	cfg, err := LoadConfig(explicit, nil)
	require.NoError(t, err)

	assert.Equal(t, "httpd", cfg.Service.Name)
	assert.Equal(t, "Web", cfg.Service.DisplayName)
	assert.Equal(t, 3*time.Second, cfg.Relay.StopGrace)
	assert.Equal(t, 512, cfg.Relay.PrivilegedPortThreshold)
	assert.Equal(t, []RuleConfig{
		{Listen: 8080, Host: "10.0.0.5", Port: 80},
		{Listen: 8443, Host: "example.com", Port: 443},
	}, cfg.Rules)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	mockHome(t)
	t.Setenv("PORTPANEL_SERVICE_NAME", "nginx")
	t.Setenv("PORTPANEL_RELAY_STOP_GRACE", "250ms")
	t.Setenv("PORTPANEL_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("", NewViper())
	require.NoError(t, err)

	assert.Equal(t, "nginx", cfg.Service.Name)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.StopGrace)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sudo", cfg.Elevation.Binary)
}

func TestLoadConfig_ExplicitMissing(t *testing.T) {
	mockHome(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	home := mockHome(t)
	writeFile(t, filepath.Join(home, userConfigDir, configFileName), "service: [unclosed")

	_, err := LoadConfig("", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mockHome(t)

	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Log.Level = "loud"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Relay.StopGrace = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Rules = []RuleConfig{{Listen: 0, Host: "h", Port: 1}}
	assert.Error(t, bad.Validate())
}

func TestSettingsConversion(t *testing.T) {
	mockHome(t)
	cfg := GetDefaultConfig()

	rs := cfg.RelaySettings()
	assert.Equal(t, "socat", rs.RelayBinary)
	assert.Equal(t, "sudo", rs.ElevationBinary)

	ss := cfg.ServiceSettings()
	assert.Equal(t, "apache2", ss.Name)
}
