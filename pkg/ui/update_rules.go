package ui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/page"
	"github.com/xlttj/portpanel/pkg/rules"
	"github.com/xlttj/portpanel/pkg/service"
)

// updateRules handles keys on the rule table view.
func (m *Model) updateRules(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case ShortcutQuit:
		return m, tea.Quit

	case ShortcutAdd:
		m.errorMsg = ""
		m.statusMsg = ""
		m.uiState = StateAddRule
		m.rulesTable.Blur()
		m.addFocus = 0
		return m, m.focusAddInput()

	case ShortcutPage:
		m.errorMsg = ""
		m.statusMsg = ""
		m.uiState = StatePageEditor
		m.rulesTable.Blur()
		m.pageFocus = 0
		return m, m.focusPageField()

	case ShortcutToggle, "space", "enter": // space arrives as either variant
		m.errorMsg = ""
		v, ok := m.selectedView()
		if !ok {
			m.errorMsg = "Cannot toggle: no rule selected"
			return m, nil
		}
		m.pending++
		return m, m.toggleCmd(v.Rule.ID)

	case ShortcutRemove:
		m.errorMsg = ""
		v, ok := m.selectedView()
		if !ok {
			m.errorMsg = "Cannot remove: no rule selected"
			return m, nil
		}
		m.pending++
		return m, m.removeCmd(v.Rule.ID)

	case ShortcutOpen:
		m.errorMsg = ""
		v, ok := m.selectedView()
		if !ok {
			m.errorMsg = "Cannot open: no rule selected"
			return m, nil
		}
		m.pending++
		return m, m.openCmd(v.Rule.ListenPort)

	case ShortcutCopy:
		m.errorMsg = ""
		v, ok := m.selectedView()
		if !ok {
			m.errorMsg = "Cannot copy: no rule selected"
			return m, nil
		}
		url := localURL(v.Rule.ListenPort)
		if err := m.copyText(url); err != nil {
			m.errorMsg = fmt.Sprintf("Copy to clipboard failed: %v", err)
			return m, nil
		}
		m.statusMsg = "Copied " + url + " to clipboard"
		return m, nil

	case ShortcutStartService:
		m.errorMsg = ""
		m.pending++
		return m, m.startServiceCmd()

	case ShortcutStopService:
		m.errorMsg = ""
		m.pending++
		return m, m.stopServiceCmd()

	case ShortcutCheckService:
		m.errorMsg = ""
		m.pending++
		return m, m.checkServiceCmd()
	}

	var cmd tea.Cmd
	m.rulesTable, cmd = m.rulesTable.Update(msg)
	return m, cmd
}

// handleResult applies the outcome of a background command.
func (m *Model) handleResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}

	switch msg := msg.(type) {
	case toggledMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Cannot toggle: %v", msg.err)
		}

	case removedMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Cannot remove: %v", msg.err)
		}

	case serviceMsg:
		if msg.result.Outcome == service.OutcomeCancelled {
			m.errorMsg = "Sudo password not provided; action cancelled"
		}

	case statusQueriedMsg:
		if msg.result.Outcome == service.OutcomeCancelled {
			m.errorMsg = "Sudo password not provided; action cancelled"
		}

	case openedMsg:
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Open %s: %v", msg.url, msg.err)
			m.log.Record(activity.Entry{Level: activity.LevelError, Source: "panel", Message: m.errorMsg})
		} else {
			m.log.Record(activity.Entry{Source: "panel", Message: "Opened " + msg.url})
			m.log.SetStatus(activity.Status{Text: "Opened " + msg.url, Tone: activity.ToneNeutral})
		}

	case pageSavedMsg:
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, page.ErrNoFilename):
				m.errorMsg = "Please provide a filename."
			case errors.Is(msg.err, page.ErrPermission):
				m.errorMsg = "Permission denied."
			default:
				m.errorMsg = msg.err.Error()
			}
			return m, nil
		}
		m.log.Record(activity.Entry{Source: "panel", Message: "Saved HTML -> " + msg.path})
		m.statusMsg = "Saved HTML to " + msg.path
		m.closePageEditor()
	}

	m.refreshTable()
	return m, nil
}

// errorForAdd turns a rule store error into the form's message.
func errorForAdd(err error) string {
	switch {
	case errors.Is(err, rules.ErrDuplicateRule):
		return "Rule already exists."
	case errors.Is(err, rules.ErrInvalidRule):
		return err.Error()
	default:
		return fmt.Sprintf("Add rule failed: %v", err)
	}
}
