package ui

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xlttj/portpanel/pkg/rules"
)

func (m *Model) focusAddInput() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.addInputs {
		if i == m.addFocus {
			cmd = m.addInputs[i].Focus()
		} else {
			m.addInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) closeAddForm() {
	for i := range m.addInputs {
		m.addInputs[i].Blur()
	}
	m.uiState = StateRules
	m.rulesTable.Focus()
}

// updateAddRule handles the add rule form.
func (m *Model) updateAddRule(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.errorMsg = ""
		m.closeAddForm()
		return m, nil
	case "tab", "down":
		m.addFocus = (m.addFocus + 1) % len(m.addInputs)
		return m, m.focusAddInput()
	case "shift+tab", "up":
		m.addFocus = (m.addFocus + len(m.addInputs) - 1) % len(m.addInputs)
		return m, m.focusAddInput()
	case "enter":
		return m.commitAddRule()
	}

	var cmd tea.Cmd
	m.addInputs[m.addFocus], cmd = m.addInputs[m.addFocus].Update(msg)
	return m, cmd
}

func (m *Model) commitAddRule() (tea.Model, tea.Cmd) {
	listenStr := strings.TrimSpace(m.addInputs[0].Value())
	host := strings.TrimSpace(m.addInputs[1].Value())
	portStr := strings.TrimSpace(m.addInputs[2].Value())
	if listenStr == "" || host == "" || portStr == "" {
		m.errorMsg = "Please fill Listen Port, Target Host and Target Port."
		return m, nil
	}

	listen, err := strconv.Atoi(listenStr)
	if err != nil {
		m.errorMsg = "Listen port must be a number."
		return m, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		m.errorMsg = "Target port must be a number."
		return m, nil
	}

	r, err := m.supervisor.Add(rules.Candidate{ListenPort: listen, TargetHost: host, TargetPort: port})
	if err != nil {
		m.errorMsg = errorForAdd(err)
		return m, nil
	}

	m.errorMsg = ""
	m.closeAddForm()
	m.refreshTable()
	if idx := m.indexOf(r); idx >= 0 {
		m.rulesTable.SetCursor(idx)
	}
	return m, nil
}

func (m *Model) focusPageField() tea.Cmd {
	for i := range m.pageInputs {
		m.pageInputs[i].Blur()
	}
	m.pageContent.Blur()
	if m.pageFocus < len(m.pageInputs) {
		return m.pageInputs[m.pageFocus].Focus()
	}
	return m.pageContent.Focus()
}

func (m *Model) closePageEditor() {
	for i := range m.pageInputs {
		m.pageInputs[i].Blur()
	}
	m.pageContent.Blur()
	m.uiState = StateRules
	m.rulesTable.Focus()
}

// updatePageEditor handles the page editor: filename, directory and content.
func (m *Model) updatePageEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := len(m.pageInputs) + 1

	switch msg.String() {
	case "esc":
		m.errorMsg = ""
		m.closePageEditor()
		return m, nil
	case "tab":
		m.pageFocus = (m.pageFocus + 1) % fields
		return m, m.focusPageField()
	case "shift+tab":
		m.pageFocus = (m.pageFocus + fields - 1) % fields
		return m, m.focusPageField()
	case ShortcutSavePage:
		m.errorMsg = ""
		m.pending++
		return m, savePageCmd(m.pageInputs[1].Value(), m.pageInputs[0].Value(), m.pageContent.Value())
	}

	var cmd tea.Cmd
	if m.pageFocus < len(m.pageInputs) {
		m.pageInputs[m.pageFocus], cmd = m.pageInputs[m.pageFocus].Update(msg)
	} else {
		m.pageContent, cmd = m.pageContent.Update(msg)
	}
	return m, cmd
}
