package ui

import (
	"context"
	"errors"

	"github.com/xlttj/portpanel/pkg/relay"
	"github.com/xlttj/portpanel/pkg/rules"
	"github.com/xlttj/portpanel/pkg/service"
)

// ErrCredentialAbandoned is returned by Model.Err when the user quits the
// startup password prompt. It is the only fatal setup failure.
var ErrCredentialAbandoned = errors.New("sudo password required to run portpanel")

// UIState represents the different views/states of the UI
type UIState int

const (
	StateCredential UIState = iota // Startup password prompt
	StateRules                     // Rule table, log pane and status bar
	StateAddRule                   // Add rule form
	StatePageEditor                // Page editor form
)

// CredentialValidator validates and caches the elevation credential.
type CredentialValidator interface {
	Validate(ctx context.Context, password string) error
	HasCredential() bool
}

// Messages produced by background commands.

type credentialMsg struct {
	err error
}

type toggledMsg struct {
	view relay.RuleView
	err  error
}

type removedMsg struct {
	rule rules.Rule
	err  error
}

type serviceMsg struct {
	verb   string
	result service.Result
}

type statusQueriedMsg struct {
	status service.Status
	result service.Result
}

type openedMsg struct {
	url string
	err error
}

type pageSavedMsg struct {
	path string
	err  error
}
