package cmd

import (
	"github.com/xlttj/portpanel/pkg/journal"
	"github.com/xlttj/portpanel/pkg/logging"
)

// openJournal loads config (which also starts logging) and opens the journal it names.
// The returned func closes both.
func openJournal(opts *options) (*journal.Journal, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	return j, func() {
		_ = j.Close()
		logging.Close()
	}, nil
}
