package ui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/elevate"
	"github.com/xlttj/portpanel/pkg/logging"
)

// updateCredential handles the startup password prompt.
func (m *Model) updateCredential(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.fatal = ErrCredentialAbandoned
		return m, tea.Quit
	case "enter":
		if m.pending > 0 {
			return m, nil
		}
		password := m.passwordInput.Value()
		if password == "" {
			m.errorMsg = "Password cannot be empty."
			return m, nil
		}
		m.errorMsg = ""
		m.statusMsg = "Checking password..."
		m.pending++
		return m, m.validateCredentialCmd(password)
	}

	var cmd tea.Cmd
	m.passwordInput, cmd = m.passwordInput.Update(msg)
	return m, cmd
}

func (m *Model) validateCredentialCmd(password string) tea.Cmd {
	ctx := m.ctx
	validator := m.credentials
	return func() tea.Msg {
		if validator == nil {
			return credentialMsg{err: errors.New("no credential validator configured")}
		}
		return credentialMsg{err: validator.Validate(ctx, password)}
	}
}

func (m *Model) handleCredential(msg credentialMsg) (tea.Model, tea.Cmd) {
	m.pending--
	m.statusMsg = ""
	m.passwordInput.SetValue("")

	switch {
	case msg.err == nil:
		m.passwordInput.Blur()
		m.uiState = StateRules
		m.errorMsg = ""
		m.log.Record(activity.Entry{Source: "panel", Message: "Sudo password accepted"})
		m.refreshTable()
		return m, nil
	case errors.Is(msg.err, elevate.ErrBadCredential):
		m.errorMsg = "Incorrect password. Try again."
		return m, nil
	case errors.Is(msg.err, elevate.ErrEmptyPassword):
		m.errorMsg = "Password cannot be empty."
		return m, nil
	default:
		logging.LogError("Credential check failed: %v", msg.err)
		m.fatal = fmt.Errorf("sudo check failed: %w", msg.err)
		return m, tea.Quit
	}
}
