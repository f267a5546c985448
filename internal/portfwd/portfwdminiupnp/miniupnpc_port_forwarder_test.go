package portfwdminiupnp_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/portfwd/portfwdminiupnp"
	"github.com/frantjc/port-registry/internal/upnp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls [][]string
	out   string
	err   error
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return []byte(r.out), r.err
}

func TestAddArgs(t *testing.T) {
	pm := &portfwd.PortMapping{
		ExternalPort:   9090,
		Protocol:       upnp.ProtocolTCP,
		InternalPort:   8080,
		InternalClient: net.ParseIP("10.0.0.5"),
		Description:    "web",
	}

	assert.Equal(t, []string{"-e", "web", "-a", "10.0.0.5", "8080", "9090", "TCP"}, portfwdminiupnp.AddArgs(pm))

	pm.LeaseDuration = time.Hour
	pm.Description = ""
	assert.Equal(t, []string{"-a", "10.0.0.5", "8080", "9090", "TCP", "3600"}, portfwdminiupnp.AddArgs(pm))
}

func TestDeleteArgs(t *testing.T) {
	assert.Equal(t, []string{"-d", "9090", "UDP"}, portfwdminiupnp.DeleteArgs(&portfwd.PortMapping{
		ExternalPort: 9090,
		Protocol:     upnp.ProtocolUDP,
	}))
}

func TestPortForwarderRunsUpnpc(t *testing.T) {
	var (
		r   = &recorder{out: "AddPortMapping(9090, 8080, 10.0.0.5) success\n"}
		p   = &portfwdminiupnp.PortForwarder{Path: "/usr/bin/upnpc", Run: r.run}
		ctx = context.Background()
		pm  = &portfwd.PortMapping{
			ExternalPort:   9090,
			Protocol:       upnp.ProtocolTCP,
			InternalPort:   8080,
			InternalClient: net.ParseIP("10.0.0.5"),
		}
	)

	require.NoError(t, p.AddPortMapping(ctx, pm))
	require.NoError(t, p.DeletePortMapping(ctx, pm))

	assert.Equal(t, [][]string{
		{"/usr/bin/upnpc", "-a", "10.0.0.5", "8080", "9090", "TCP"},
		{"/usr/bin/upnpc", "-d", "9090", "TCP"},
	}, r.calls)
}

func TestPortForwarderDetectsFailureOutput(t *testing.T) {
	var (
		r = &recorder{out: "AddPortMapping(9090, 8080, 10.0.0.5) failed with code 718 (ConflictInMappingEntry)\n"}
		p = &portfwdminiupnp.PortForwarder{Run: r.run}
	)

	err := p.AddPortMapping(context.Background(), &portfwd.PortMapping{Protocol: upnp.ProtocolTCP, InternalClient: net.ParseIP("10.0.0.5")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConflictInMappingEntry")
}

func TestPortForwarderCommandError(t *testing.T) {
	var (
		errExit = errors.New("exit status 1")
		r       = &recorder{err: errExit}
		p       = &portfwdminiupnp.PortForwarder{Run: r.run}
	)

	err := p.DeletePortMapping(context.Background(), &portfwd.PortMapping{Protocol: upnp.ProtocolUDP})
	assert.ErrorIs(t, err, errExit)
}

func TestPortForwarderGetExternalIPAddress(t *testing.T) {
	r := &recorder{out: `upnpc : miniupnpc library test client, version 2.2.4.
Found valid IGD : http://192.168.0.1:5000/ctl/IPConn
Local LAN ip address : 192.168.0.3
Connection Type : IP_Routed
Status : Connected, uptime=123s, LastConnectionError : ERROR_NONE
ExternalIPAddress = 203.0.113.7
`}

	ip, err := (&portfwdminiupnp.PortForwarder{Run: r.run}).GetExternalIPAddress(context.Background())
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.ParseIP("203.0.113.7")))
	assert.Equal(t, [][]string{{"upnpc", "-s"}}, r.calls)

	r.out = "No IGD UPnP Device found on the network !\n"

	_, err = (&portfwdminiupnp.PortForwarder{Run: r.run}).GetExternalIPAddress(context.Background())
	assert.Error(t, err)
}
