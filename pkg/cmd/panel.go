package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/ui"
)

// runPanel starts the interactive TUI and tears every relay down on exit.
func runPanel(cmd *cobra.Command, opts *options) error {
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := ui.NewModel(ui.Deps{
		Credentials: a.sudo,
		Supervisor:  a.supervisor,
		Service:     a.service,
		Log:         a.log,
		PageDir:     a.cfg.Page.Dir,
		Context:     ctx,
	})

	logging.LogInfo("Panel started (service %s, relay %s)", a.cfg.Service.Name, a.cfg.Relay.Binary)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running panel: %w", err)
	}
	model.Cleanup()
	return model.Err()
}
