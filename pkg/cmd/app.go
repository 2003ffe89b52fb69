package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/config"
	"github.com/xlttj/portpanel/pkg/elevate"
	"github.com/xlttj/portpanel/pkg/journal"
	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/relay"
	"github.com/xlttj/portpanel/pkg/rules"
	"github.com/xlttj/portpanel/pkg/service"
)

// app wires the components of one portpanel run.
type app struct {
	cfg        config.PanelConfig
	log        *activity.Log
	journal    *journal.Journal // nil when the journal could not be opened
	session    *elevate.Session
	sudo       *elevate.Sudo
	supervisor *relay.Supervisor
	service    *service.Controller
}

// loadConfig layers the config files and flag/env overrides and starts logging.
func loadConfig(opts *options) (config.PanelConfig, error) {
	cfg, err := config.LoadConfig(opts.configFile, opts.viper)
	if err != nil {
		return config.PanelConfig{}, err
	}
	if err := logging.Init(cfg.Log.File, cfg.Log.Level); err != nil {
		return config.PanelConfig{}, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

// newApp builds every component. Journal failures are reported on warnOut and
// the panel runs without history.
func newApp(opts *options, warnOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: activity.NewLog(0)}

	recorder := activity.Recorder(a.log)
	if j, err := journal.Open(cfg.Journal.Path); err != nil {
		logging.LogError("Journal disabled: %v", err)
		fmt.Fprintf(warnOut, "Warning: journal disabled: %v\n", err)
	} else {
		a.journal = j
		recorder = activity.Multi(a.log, j)
	}

	a.session = elevate.NewSession()
	a.sudo = elevate.NewSudo(cfg.Elevation.Binary, a.session)
	a.supervisor = relay.NewSupervisor(rules.NewStore(), a.sudo, recorder, cfg.RelaySettings())
	a.service = service.NewController(a.sudo, recorder, cfg.ServiceSettings())

	a.seedRules()
	return a, nil
}

// seedRules adds the rules listed in config, inactive.
func (a *app) seedRules() {
	for _, rc := range a.cfg.Rules {
		if _, err := a.supervisor.Store().Add(rc.Candidate()); err != nil {
			if errors.Is(err, rules.ErrDuplicateRule) {
				logging.LogDebug("Config rule %d -> %s:%d listed twice", rc.Listen, rc.Host, rc.Port)
				continue
			}
			logging.LogWarn("Skipping config rule: %v", err)
		}
	}
}

// close stops every relay and releases the journal, the credential and the log file.
func (a *app) close() {
	a.supervisor.CleanupAll()
	a.session.Close()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logging.LogError("Closing journal: %v", err)
		}
	}
	logging.Close()
}
