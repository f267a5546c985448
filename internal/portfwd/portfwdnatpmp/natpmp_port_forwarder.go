package portfwdnatpmp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/go-logr/logr"
	natpmp "github.com/jackpal/go-nat-pmp"
	"github.com/libp2p/go-netroute"
)

var (
	// ErrNoGateway is returned when no NAT-PMP gateway answers on the default route.
	ErrNoGateway = errors.New("no NAT-PMP gateway found")
	// ErrForeignInternalClient is returned when asked to forward a port to
	// another host, which NAT-PMP cannot express.
	ErrForeignInternalClient = errors.New("NAT-PMP can only forward ports to this host")
	// ErrExternalPortUnavailable is returned when the gateway maps a different
	// external port than the one requested.
	ErrExternalPortUnavailable = errors.New("NAT-PMP gateway did not grant the requested external port")
)

// DefaultTimeout bounds each NAT-PMP request, retries included.
const DefaultTimeout = 5 * time.Second

// MaxLifetime is requested for mappings that should not expire,
// since a lifetime of 0 deletes a NAT-PMP mapping.
const MaxLifetime = math.MaxInt32

// Client is the subset of *natpmp.Client used by PortForwarder.
type Client interface {
	GetExternalAddress() (*natpmp.GetExternalAddressResult, error)
	AddPortMapping(protocol string, internalPort, requestedExternalPort int, lifetime int) (*natpmp.AddPortMappingResult, error)
}

// PortForwarder implements portfwd.Gateway using NAT-PMP.
type PortForwarder struct {
	Client  Client
	Gateway net.IP
	// LocalAddrs lists this host's addresses. Defaults to net.InterfaceAddrs.
	LocalAddrs func() ([]net.Addr, error)
}

var _ portfwd.Gateway = &PortForwarder{}

// NewPortForwarder finds the gateway of the default route and
// checks that it speaks NAT-PMP. It does not retry.
func NewPortForwarder(ctx context.Context) (*PortForwarder, error) {
	router, err := netroute.New()
	if err != nil {
		return nil, fmt.Errorf("%w: read routing table: %v", ErrNoGateway, err)
	}

	_, gateway, _, err := router.Route(net.IPv4(8, 8, 8, 8))
	if err != nil {
		return nil, fmt.Errorf("%w: find default route: %v", ErrNoGateway, err)
	} else if gateway == nil {
		return nil, fmt.Errorf("%w: default route has no gateway", ErrNoGateway)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("probing NAT-PMP gateway", "gateway", gateway.String())

	p := &PortForwarder{
		Client:  natpmp.NewClientWithTimeout(gateway, DefaultTimeout),
		Gateway: gateway,
	}

	if _, err := p.GetExternalIPAddress(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoGateway, gateway, err)
	}

	return p, nil
}

// GetExternalIPAddress implements extip.ExternalIPAddressGetter.
func (p *PortForwarder) GetExternalIPAddress(context.Context) (net.IP, error) {
	res, err := p.Client.GetExternalAddress()
	if err != nil {
		return nil, err
	}

	return net.IPv4(res.ExternalIPAddress[0], res.ExternalIPAddress[1], res.ExternalIPAddress[2], res.ExternalIPAddress[3]), nil
}

// AddPortMapping implements portfwd.PortForwarder.
func (p *PortForwarder) AddPortMapping(ctx context.Context, pm *portfwd.PortMapping) error {
	if err := p.checkInternalClient(pm.InternalClient); err != nil {
		return err
	}

	lifetime := int(pm.LeaseDuration.Seconds())
	if lifetime <= 0 {
		lifetime = MaxLifetime
	}

	protocol := strings.ToLower(string(pm.Protocol))

	res, err := p.Client.AddPortMapping(protocol, int(pm.InternalPort), int(pm.ExternalPort), lifetime)
	if err != nil {
		return err
	}

	if res.MappedExternalPort != pm.ExternalPort {
		if _, err := p.Client.AddPortMapping(protocol, int(pm.InternalPort), 0, 0); err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "removing NAT-PMP mapping to unrequested port", "externalPort", res.MappedExternalPort)
		}

		return fmt.Errorf("%w: requested %d, got %d", ErrExternalPortUnavailable, pm.ExternalPort, res.MappedExternalPort)
	}

	return nil
}

// DeletePortMapping implements portfwd.PortForwarder. NAT-PMP
// identifies mappings by internal port, so pm.InternalPort is used.
func (p *PortForwarder) DeletePortMapping(_ context.Context, pm *portfwd.PortMapping) error {
	if err := p.checkInternalClient(pm.InternalClient); err != nil {
		return err
	}

	_, err := p.Client.AddPortMapping(strings.ToLower(string(pm.Protocol)), int(pm.InternalPort), 0, 0)
	return err
}

func (p *PortForwarder) checkInternalClient(ip net.IP) error {
	if ip == nil || ip.IsLoopback() {
		return nil
	}

	localAddrs := p.LocalAddrs
	if localAddrs == nil {
		localAddrs = net.InterfaceAddrs
	}

	addrs, err := localAddrs()
	if err != nil {
		return err
	}

	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s is not a local address", ErrForeignInternalClient, ip)
}
