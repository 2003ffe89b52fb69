package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/xlttj/portpanel/pkg/page"
)

// Background commands. Each one runs off the update loop and reports back
// with a message; the components they call serialize their own state.

func (m *Model) toggleCmd(id uuid.UUID) tea.Cmd {
	ctx, sup := m.ctx, m.supervisor
	return func() tea.Msg {
		v, err := sup.Toggle(ctx, id)
		return toggledMsg{view: v, err: err}
	}
}

func (m *Model) removeCmd(id uuid.UUID) tea.Cmd {
	ctx, sup := m.ctx, m.supervisor
	return func() tea.Msg {
		r, err := sup.Remove(ctx, id)
		return removedMsg{rule: r, err: err}
	}
}

func (m *Model) startServiceCmd() tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		return serviceMsg{verb: "start", result: svc.Start(ctx)}
	}
}

func (m *Model) stopServiceCmd() tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		return serviceMsg{verb: "stop", result: svc.Stop(ctx)}
	}
}

func (m *Model) checkServiceCmd() tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		status, res := svc.QueryStatus(ctx)
		return statusQueriedMsg{status: status, result: res}
	}
}

func (m *Model) openCmd(listenPort int) tea.Cmd {
	open := m.openURL
	url := localURL(listenPort)
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

func savePageCmd(dir, name, content string) tea.Cmd {
	return func() tea.Msg {
		path, err := page.Write(dir, name, content)
		return pageSavedMsg{path: path, err: err}
	}
}

// localURL is the address a rule serves on this host.
func localURL(listenPort int) string {
	return fmt.Sprintf("http://localhost:%d", listenPort)
}
