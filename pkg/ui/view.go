package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/xlttj/portpanel/pkg/activity"
)

// View renders the current model state
func (m *Model) View() string {
	switch m.uiState {
	case StateCredential:
		return m.viewCredential()
	case StateRules:
		return m.viewRules()
	case StateAddRule:
		return m.viewAddRule()
	case StatePageEditor:
		return m.viewPageEditor()
	}
	return "Unknown state"
}

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTitle)).Bold(true)
}

func helpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
}

func labelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLabel))
}

// messageLine renders the error or status message, if any.
func (m *Model) messageLine() string {
	if m.errorMsg != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("ERROR: " + m.errorMsg)
	}
	if m.statusMsg != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.statusMsg)
	}
	return ""
}

func (m *Model) viewCredential() string {
	lines := []string{
		titleStyle().Render(AppTitle),
		"",
		"Enter your sudo password to continue.",
		"",
		labelStyle().Render("Password: ") + m.passwordInput.View(),
		"",
	}
	if msg := m.messageLine(); msg != "" {
		lines = append(lines, msg)
	}
	lines = append(lines, helpStyle().Render(ActionCredential))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// viewRules renders the rule table, output log and status bar.
func (m *Model) viewRules() string {
	title := titleStyle().Render(AppTitle)

	help := ActionRulesNav
	if m.width < NarrowWidth+40 {
		help = ActionRulesNavShort
	}
	helpText := helpStyle().Render(help)

	var top string
	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(helpText)
	if m.width >= NarrowWidth && spacing > 0 {
		top = lipgloss.JoinHorizontal(lipgloss.Left, title, strings.Repeat(" ", spacing), helpText)
	} else {
		top = title
	}

	tableView := lipgloss.PlaceHorizontal(m.width, lipgloss.Left, m.rulesTable.View())
	if len(m.views) == 0 {
		tableView = lipgloss.JoinVertical(lipgloss.Left, tableView, helpStyle().Render("No rules yet. Press a to add one."))
	}

	parts := []string{top, "", tableView, m.viewLog()}
	if msg := m.messageLine(); msg != "" {
		parts = append(parts, msg)
	}
	parts = append(parts, m.viewStatusBar())
	if m.width < NarrowWidth || spacing <= 0 {
		parts = append(parts, helpText)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// viewLog renders the tail of the output log in a bordered pane.
func (m *Model) viewLog() string {
	n := m.logLines()
	entries := m.log.Tail(n)

	lines := make([]string, 0, n)
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarnLine))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	// one entry per row; long messages would wrap and push the status bar off screen
	maxWidth := max(m.width-4, 16)
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s", e.Time.Format("15:04:05"), e.Message)
		if runewidth.StringWidth(line) > maxWidth {
			line = runewidth.Truncate(line, maxWidth, "…")
		}
		switch e.Level {
		case activity.LevelWarn:
			line = warn.Render(line)
		case activity.LevelError:
			line = bad.Render(line)
		}
		lines = append(lines, line)
	}
	for len(lines) < n {
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(max(m.width-2, 20)).
		Render(strings.Join(lines, "\n"))
}

func statusBarStyle(tone activity.Tone) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	switch tone {
	case activity.ToneGood:
		return s.Background(lipgloss.Color(ColorGoodBg)).Foreground(lipgloss.Color(ColorLightFg))
	case activity.ToneWarning:
		return s.Background(lipgloss.Color(ColorWarningBg)).Foreground(lipgloss.Color(ColorDarkFg))
	case activity.ToneBad:
		return s.Background(lipgloss.Color(ColorBadBg)).Foreground(lipgloss.Color(ColorLightFg))
	default:
		return s.Background(lipgloss.Color(ColorNeutralBg)).Foreground(lipgloss.Color(ColorLightFg))
	}
}

func (m *Model) viewStatusBar() string {
	status := m.log.Status()
	text := status.Text
	if m.pending > 0 {
		text += "  (working...)"
	}
	return statusBarStyle(status.Tone).Width(max(m.width, 20)).Render(text)
}

func (m *Model) viewAddRule() string {
	labels := []string{"Listen Port:", "Target Host:", "Target Port:"}
	lines := []string{titleStyle().Render("Add Forwarding Rule"), ""}
	for i, in := range m.addInputs {
		lines = append(lines, labelStyle().Render(fmt.Sprintf("%-13s", labels[i]))+in.View())
	}
	lines = append(lines, "")
	if msg := m.messageLine(); msg != "" {
		lines = append(lines, msg)
	}
	lines = append(lines, helpStyle().Render(ActionAddRule))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) viewPageEditor() string {
	lines := []string{
		titleStyle().Render("Add HTML Page"),
		"",
		labelStyle().Render("Filename:  ") + m.pageInputs[0].View(),
		labelStyle().Render("Directory: ") + m.pageInputs[1].View(),
		"",
		labelStyle().Render("HTML Content:"),
		m.pageContent.View(),
		"",
	}
	if msg := m.messageLine(); msg != "" {
		lines = append(lines, msg)
	}
	lines = append(lines, helpStyle().Render(ActionPageEditor))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
