package relay

import (
	"net"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlttj/portpanel/pkg/rules"
)

func TestIsPortAvailable(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	assert.True(t, isPortAvailable(port))

	l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	require.NoError(t, err)
	defer l.Close()
	assert.False(t, isPortAvailable(port))
}

func TestRelayArgs(t *testing.T) {
	r := rules.Rule{ID: uuid.New(), ListenPort: 8080, TargetHost: "10.0.0.5", TargetPort: 80}
	assert.Equal(t, []string{"TCP-LISTEN:8080,reuseaddr,fork", "TCP:10.0.0.5:80"}, relayArgs(r))

	r6 := rules.Rule{ID: uuid.New(), ListenPort: 9000, TargetHost: "::1", TargetPort: 443}
	assert.Equal(t, "TCP:[::1]:443", relayArgs(r6)[1])
}
