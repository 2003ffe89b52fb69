package config

import (
	"path/filepath"

	"github.com/xlttj/portpanel/pkg/page"
	"github.com/xlttj/portpanel/pkg/relay"
	"github.com/xlttj/portpanel/pkg/service"
)

const (
	logFileName     = "portpanel.log"
	journalFileName = "journal.db"
)

// GetDefaultConfig returns the built-in configuration. File locations live in
// the user config directory, or the working directory if home is unknown.
func GetDefaultConfig() PanelConfig {
	dir, err := GetUserConfigDir()
	if err != nil {
		dir = "."
	}
	return PanelConfig{
		Service: ServiceConfig{
			Name:        service.DefaultName,
			Manager:     service.DefaultManager,
			DisplayName: service.DefaultDisplayName,
		},
		Elevation: ElevationConfig{Binary: relay.DefaultElevationBinary},
		Relay: RelayConfig{
			Binary:                  relay.DefaultRelayBinary,
			PrivilegedPortThreshold: relay.DefaultPrivilegedPortThreshold,
			StopGrace:               relay.DefaultStopGrace,
		},
		Log: LogConfig{
			File:  filepath.Join(dir, logFileName),
			Level: "info",
		},
		Journal: JournalConfig{Path: filepath.Join(dir, journalFileName)},
		Page:    PageConfig{Dir: page.DefaultDir},
	}
}

// RelaySettings converts the relay section for the supervisor.
func (c PanelConfig) RelaySettings() relay.Config {
	return relay.Config{
		RelayBinary:             c.Relay.Binary,
		ElevationBinary:         c.Elevation.Binary,
		PrivilegedPortThreshold: c.Relay.PrivilegedPortThreshold,
		StopGrace:               c.Relay.StopGrace,
	}
}

// ServiceSettings converts the service section for the controller.
func (c PanelConfig) ServiceSettings() service.Config {
	return service.Config{
		Name:        c.Service.Name,
		Manager:     c.Service.Manager,
		DisplayName: c.Service.DisplayName,
	}
}
