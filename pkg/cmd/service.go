package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xlttj/portpanel/pkg/elevate"
	"github.com/xlttj/portpanel/pkg/service"
)

var errActionCancelled = errors.New("sudo password not provided; action cancelled")

func newServiceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Start, stop or check the web server without the TUI",
		Long: `Run one service action and print its output.

The sudo password is read from the terminal without echo, or as one line
from stdin when stdin is not a terminal. It is only kept for this run.`,
	}
	for _, verb := range []string{"start", "stop", "status"} {
		cmd.AddCommand(newServiceActionCmd(opts, verb))
	}
	return cmd
}

func newServiceActionCmd(opts *options, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb,
		Short: serviceShort[verb],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.sudo.Validate(cmd.Context(), password); err != nil {
				if errors.Is(err, elevate.ErrEmptyPassword) {
					return errActionCancelled
				}
				return err
			}
			return runServiceAction(cmd.Context(), a.service, verb, cmd.OutOrStdout())
		},
	}
}

var serviceShort = map[string]string{
	"start":  "Start the web server",
	"stop":   "Stop the web server",
	"status": "Show whether the web server is active",
}

// runServiceAction performs verb and prints the outcome. Failed and cancelled
// actions become errors so the process exits non-zero.
func runServiceAction(ctx context.Context, ctl *service.Controller, verb string, out io.Writer) error {
	var res service.Result
	switch verb {
	case "start":
		res = ctl.Start(ctx)
	case "stop":
		res = ctl.Stop(ctx)
	case "status":
		var status service.Status
		status, res = ctl.QueryStatus(ctx)
		if res.Outcome != service.OutcomeCancelled {
			fmt.Fprintf(out, "%s: %s\n", ctl.Name(), status)
			return nil
		}
	default:
		return fmt.Errorf("unknown service action %q", verb)
	}

	switch res.Outcome {
	case service.OutcomeCancelled:
		return errActionCancelled
	case service.OutcomeFailed:
		if text := strings.TrimSpace(res.Output); text != "" {
			fmt.Fprintln(out, text)
		}
		return fmt.Errorf("%s %s failed with exit code %d", verb, ctl.Name(), res.ExitCode)
	}
	if text := strings.TrimSpace(res.Output); text != "" {
		fmt.Fprintln(out, text)
	}
	fmt.Fprintf(out, "%s %s: ok\n", ctl.Name(), verb)
	return nil
}

// readPassword prompts on prompt and reads without echo when in is a terminal.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Enter sudo password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
