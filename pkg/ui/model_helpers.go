package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"

	"github.com/xlttj/portpanel/pkg/relay"
	"github.com/xlttj/portpanel/pkg/rules"
)

// calculateColumnWidths returns column widths based on terminal width
func (m *Model) calculateColumnWidths() []table.Column {
	minWidths := map[string]int{
		ColListen:     8,
		ColTargetHost: 12,
		ColTargetPort: 11,
		ColStatus:     12,
	}

	availableWidth := max(m.width-10, 50)

	totalMinWidth := 0
	for _, width := range minWidths {
		totalMinWidth += width
	}
	extraSpace := max(availableWidth-totalMinWidth, 0)

	// the host column takes most of the slack
	finalWidths := make(map[string]int, len(minWidths))
	for col, minWidth := range minWidths {
		finalWidths[col] = minWidth
	}
	finalWidths[ColTargetHost] += extraSpace * 60 / 100
	finalWidths[ColStatus] += extraSpace * 20 / 100
	finalWidths[ColListen] += extraSpace * 10 / 100
	finalWidths[ColTargetPort] += extraSpace * 10 / 100

	return []table.Column{
		{Title: ColListen, Width: finalWidths[ColListen]},
		{Title: ColTargetHost, Width: finalWidths[ColTargetHost]},
		{Title: ColTargetPort, Width: finalWidths[ColTargetPort]},
		{Title: ColStatus, Width: finalWidths[ColStatus]},
	}
}

// tableHeight splits the free rows between the table and the log pane.
func (m *Model) tableHeight() int {
	free := m.height - RulesViewOffset
	return max(free-m.logLines(), MinTableHeight)
}

func (m *Model) logLines() int {
	free := m.height - RulesViewOffset
	return max(free/3, MinLogLines)
}

// statusText renders the runtime state of one rule.
func statusText(v relay.RuleView) string {
	switch {
	case !v.Active:
		return StatusInactive
	case v.Exited:
		return StatusExited
	case v.Degraded:
		return StatusDegraded
	default:
		return StatusActive
	}
}

func generateRuleRows(views []relay.RuleView) []table.Row {
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		rows = append(rows, table.Row{
			strconv.Itoa(v.Rule.ListenPort),
			v.Rule.TargetHost,
			strconv.Itoa(v.Rule.TargetPort),
			statusText(v),
		})
	}
	return rows
}

// refreshTable re-reads the supervisor and keeps the cursor in range.
func (m *Model) refreshTable() {
	if m.supervisor == nil {
		m.views = nil
	} else {
		m.views = m.supervisor.List()
	}
	m.rulesTable.SetRows(generateRuleRows(m.views))
	if n := len(m.views); n > 0 && m.rulesTable.Cursor() >= n {
		m.rulesTable.SetCursor(n - 1)
	}
}

// selectedView returns the rule under the cursor.
func (m *Model) selectedView() (relay.RuleView, bool) {
	idx := m.rulesTable.Cursor()
	if idx < 0 || idx >= len(m.views) {
		return relay.RuleView{}, false
	}
	return m.views[idx], true
}

func (m *Model) indexOf(r rules.Rule) int {
	for i, v := range m.views {
		if v.Rule.ID == r.ID {
			return i
		}
	}
	return -1
}
