package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/xlttj/portpanel/pkg/logging"
)

// openInBrowser opens url with the platform's default handler.
func openInBrowser(url string) error {
	logging.LogDebug("Opening URL in browser: %s", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return cmd.Run()
}
