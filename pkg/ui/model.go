package ui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/page"
	"github.com/xlttj/portpanel/pkg/relay"
	"github.com/xlttj/portpanel/pkg/service"
)

// Deps are the components the UI drives.
type Deps struct {
	Credentials CredentialValidator
	Supervisor  *relay.Supervisor
	Service     *service.Controller
	Log         *activity.Log
	// PageDir is the default target directory of the page editor.
	PageDir string
	// OpenURL opens a URL in the user's browser; defaults to the platform opener.
	OpenURL func(url string) error
	// CopyText puts text on the clipboard; defaults to the system clipboard.
	CopyText func(text string) error
	Context  context.Context
}

// Model represents the state of the UI
type Model struct {
	uiState UIState

	// Core components
	ctx         context.Context
	credentials CredentialValidator
	supervisor  *relay.Supervisor
	service     *service.Controller
	log         *activity.Log
	openURL     func(string) error
	copyText    func(string) error

	width  int
	height int

	// Central error message
	errorMsg string
	// Status/info message (non-error feedback)
	statusMsg string
	// Actions running in the background
	pending int

	// fatal is reported by Err after the program exits
	fatal error

	passwordInput textinput.Model

	rulesTable table.Model
	views      []relay.RuleView

	addInputs []textinput.Model
	addFocus  int

	pageInputs  []textinput.Model // filename, directory
	pageContent textarea.Model
	pageFocus   int
}

// NewModel builds the UI. If the credential is already cached the password
// prompt is skipped.
func NewModel(deps Deps) *Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.OpenURL == nil {
		deps.OpenURL = openInBrowser
	}
	if deps.CopyText == nil {
		deps.CopyText = clipboard.WriteAll
	}
	if deps.Log == nil {
		deps.Log = activity.NewLog(0)
	}
	if deps.PageDir == "" {
		deps.PageDir = page.DefaultDir
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(ColorSelectedFg)).
		Background(lipgloss.Color(ColorSelectedBg)).
		Bold(false)

	pw := textinput.New()
	pw.Placeholder = "sudo password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.CharLimit = 256
	pw.Width = 30

	m := &Model{
		uiState:       StateCredential,
		ctx:           deps.Context,
		credentials:   deps.Credentials,
		supervisor:    deps.Supervisor,
		service:       deps.Service,
		log:           deps.Log,
		openURL:       deps.OpenURL,
		copyText:      deps.CopyText,
		width:         80, // Default width, will be updated on first WindowSizeMsg
		height:        24, // Default height, will be updated on first WindowSizeMsg
		passwordInput: pw,
		addInputs:     newAddInputs(),
		pageInputs:    newPageInputs(deps.PageDir),
		pageContent:   newPageContent(),
	}

	m.rulesTable = table.New(
		table.WithColumns(m.calculateColumnWidths()),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(s),
	)
	m.refreshTable()

	if m.credentials != nil && m.credentials.HasCredential() {
		m.uiState = StateRules
	} else {
		m.passwordInput.Focus()
	}
	return m
}

func newAddInputs() []textinput.Model {
	defaults := []struct{ placeholder, value string }{
		{"listen port", DefaultListenPort},
		{"target host", DefaultTargetHost},
		{"target port", DefaultTargetPort},
	}
	inputs := make([]textinput.Model, len(defaults))
	for i, d := range defaults {
		ti := textinput.New()
		ti.Placeholder = d.placeholder
		ti.SetValue(d.value)
		ti.CharLimit = 253
		ti.Width = 24
		inputs[i] = ti
	}
	return inputs
}

func newPageInputs(dir string) []textinput.Model {
	name := textinput.New()
	name.Placeholder = "index.html"
	name.SetValue(page.DefaultFilename)
	name.Width = 40

	target := textinput.New()
	target.Placeholder = page.DefaultDir
	target.SetValue(dir)
	target.Width = 40

	return []textinput.Model{name, target}
}

func newPageContent() textarea.Model {
	ta := textarea.New()
	ta.SetValue(page.DefaultTemplate)
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(76)
	ta.SetHeight(10)
	return ta
}

// Err returns the fatal error that ended the program, if any.
func (m *Model) Err() error {
	return m.fatal
}

// State returns the current view.
func (m *Model) State() UIState {
	return m.uiState
}

func (m *Model) Cleanup() {
	if m.supervisor != nil {
		m.supervisor.CleanupAll()
	}
}

func (m *Model) Init() tea.Cmd {
	if m.uiState == StateCredential {
		return textinput.Blink
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rulesTable.SetHeight(m.tableHeight())
		m.rulesTable.SetColumns(m.calculateColumnWidths())
		m.pageContent.SetWidth(max(m.width-4, 20))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.uiState == StateCredential {
				m.fatal = ErrCredentialAbandoned
			}
			return m, tea.Quit
		}

		switch m.uiState {
		case StateCredential:
			return m.updateCredential(msg)
		case StateRules:
			return m.updateRules(msg)
		case StateAddRule:
			return m.updateAddRule(msg)
		case StatePageEditor:
			return m.updatePageEditor(msg)
		}

	case credentialMsg:
		return m.handleCredential(msg)

	case toggledMsg, removedMsg, serviceMsg, statusQueriedMsg, openedMsg, pageSavedMsg:
		return m.handleResult(msg)
	}

	if m.uiState == StatePageEditor {
		var cmd tea.Cmd
		m.pageContent, cmd = m.pageContent.Update(msg)
		return m, cmd
	}
	return m, nil
}
