package config

import (
	"time"

	"github.com/xlttj/portpanel/pkg/rules"
)

// PanelConfig is the complete portpanel configuration.
type PanelConfig struct {
	Service   ServiceConfig   `yaml:"service"`
	Elevation ElevationConfig `yaml:"elevation"`
	Relay     RelayConfig     `yaml:"relay"`
	Log       LogConfig       `yaml:"log"`
	Journal   JournalConfig   `yaml:"journal"`
	Page      PageConfig      `yaml:"page"`
	// Rules are seeded inactive at startup. They are never written back.
	Rules []RuleConfig `yaml:"rules,omitempty"`
}

// ServiceConfig names the managed web server unit.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Manager     string `yaml:"manager"`
	DisplayName string `yaml:"display_name"`
}

type ElevationConfig struct {
	Binary string `yaml:"binary"`
}

// RelayConfig configures the external TCP relay.
type RelayConfig struct {
	Binary                  string        `yaml:"binary"`
	PrivilegedPortThreshold int           `yaml:"privileged_port_threshold"`
	StopGrace               time.Duration `yaml:"stop_grace"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type PageConfig struct {
	Dir string `yaml:"dir"`
}

// RuleConfig is a forwarding rule listed in a config file.
type RuleConfig struct {
	Listen int    `yaml:"listen"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// Candidate converts the entry for admission to the rule store.
func (r RuleConfig) Candidate() rules.Candidate {
	return rules.Candidate{ListenPort: r.Listen, TargetHost: r.Host, TargetPort: r.Port}
}
