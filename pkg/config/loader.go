package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

const (
	userConfigDir  = ".config/portpanel"
	configFileName = "config.yaml"
	envPrefix      = "PORTPANEL"
)

// Override keys, also reachable as PORTPANEL_<SECTION>_<KEY> environment variables.
const (
	ConfigServiceName         = "service.name"
	ConfigServiceManager      = "service.manager"
	ConfigServiceDisplayName  = "service.display_name"
	ConfigElevationBinary     = "elevation.binary"
	ConfigRelayBinary         = "relay.binary"
	ConfigRelayPrivilegedPort = "relay.privileged_port_threshold"
	ConfigRelayStopGrace      = "relay.stop_grace"
	ConfigLogFile             = "log.file"
	ConfigLogLevel            = "log.level"
	ConfigJournalPath         = "journal.path"
	ConfigPageDir             = "page.dir"
)

// NewViper returns a viper instance reading PORTPANEL_* environment variables.
// Callers may bind command-line flags to the Config* keys before LoadConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadConfig layers defaults, the user config file, the explicit file (if
// explicitPath is non-empty) and finally the overrides held by v (may be nil).
func LoadConfig(explicitPath string, v *viper.Viper) (PanelConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
		userConfig, err := loadConfigFromFile(userConfigPath)
		if err != nil {
			return PanelConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
		config = mergeConfigs(config, userConfig)
	}

	if explicitPath != "" {
		explicitConfig, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return PanelConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, explicitConfig)
	}

	if v != nil {
		config = applyOverrides(config, v)
	}

	if err := config.Validate(); err != nil {
		return PanelConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func loadConfigFromFile(filePath string) (PanelConfig, error) {
	var config PanelConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return PanelConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return PanelConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// overlay leave base untouched; rules are appended.
func mergeConfigs(base, overlay PanelConfig) PanelConfig {
	merged := base

	mergeString(&merged.Service.Name, overlay.Service.Name)
	mergeString(&merged.Service.Manager, overlay.Service.Manager)
	mergeString(&merged.Service.DisplayName, overlay.Service.DisplayName)
	mergeString(&merged.Elevation.Binary, overlay.Elevation.Binary)
	mergeString(&merged.Relay.Binary, overlay.Relay.Binary)
	if overlay.Relay.PrivilegedPortThreshold != 0 {
		merged.Relay.PrivilegedPortThreshold = overlay.Relay.PrivilegedPortThreshold
	}
	if overlay.Relay.StopGrace != 0 {
		merged.Relay.StopGrace = overlay.Relay.StopGrace
	}
	mergeString(&merged.Log.File, overlay.Log.File)
	mergeString(&merged.Log.Level, overlay.Log.Level)
	mergeString(&merged.Journal.Path, overlay.Journal.Path)
	mergeString(&merged.Page.Dir, overlay.Page.Dir)

	merged.Rules = append(append([]RuleConfig(nil), base.Rules...), overlay.Rules...)
	return merged
}

func mergeString(dst *string, overlay string) {
	if overlay != "" {
		*dst = overlay
	}
}

func applyOverrides(config PanelConfig, v *viper.Viper) PanelConfig {
	stringKeys := map[string]*string{
		ConfigServiceName:        &config.Service.Name,
		ConfigServiceManager:     &config.Service.Manager,
		ConfigServiceDisplayName: &config.Service.DisplayName,
		ConfigElevationBinary:    &config.Elevation.Binary,
		ConfigRelayBinary:        &config.Relay.Binary,
		ConfigLogFile:            &config.Log.File,
		ConfigLogLevel:           &config.Log.Level,
		ConfigJournalPath:        &config.Journal.Path,
		ConfigPageDir:            &config.Page.Dir,
	}
	for key, dst := range stringKeys {
		if v.IsSet(key) {
			mergeString(dst, v.GetString(key))
		}
	}
	if v.IsSet(ConfigRelayPrivilegedPort) {
		config.Relay.PrivilegedPortThreshold = v.GetInt(ConfigRelayPrivilegedPort)
	}
	if v.IsSet(ConfigRelayStopGrace) {
		config.Relay.StopGrace = v.GetDuration(ConfigRelayStopGrace)
	}
	return config
}

// Validate rejects settings the panel cannot run with.
func (c PanelConfig) Validate() error {
	if c.Relay.PrivilegedPortThreshold < 1 || c.Relay.PrivilegedPortThreshold > 65536 {
		return fmt.Errorf("relay.privileged_port_threshold must be between 1 and 65536, got %d", c.Relay.PrivilegedPortThreshold)
	}
	if c.Relay.StopGrace <= 0 {
		return fmt.Errorf("relay.stop_grace must be positive, got %s", c.Relay.StopGrace)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Service.Name == "" {
		return fmt.Errorf("service.name must not be empty")
	}
	for i, r := range c.Rules {
		if err := r.Candidate().Validate(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}
