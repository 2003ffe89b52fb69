package relay

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/xlttj/portpanel/pkg/logging"
	"github.com/xlttj/portpanel/pkg/rules"
)

// ErrPortInUse means another process already listens on the rule's listen port.
var ErrPortInUse = errors.New("local port already in use")

// isPortAvailable checks if a TCP port can be bound on all interfaces.
func isPortAvailable(port int) bool {
	address := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		logging.LogDebug("Port check: cannot listen on %s: %v", address, err)
		return false
	}
	_ = listener.Close()
	return true
}

// relayArgs builds the relay argument list (without the binary) for r.
func relayArgs(r rules.Rule) []string {
	return []string{
		"TCP-LISTEN:" + strconv.Itoa(r.ListenPort) + ",reuseaddr,fork",
		"TCP:" + net.JoinHostPort(r.TargetHost, strconv.Itoa(r.TargetPort)),
	}
}
