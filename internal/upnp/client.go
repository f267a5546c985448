package upnp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	xslice "github.com/frantjc/x/slice"
	"github.com/go-logr/logr"
	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/huin/goupnp/dcps/internetgateway2"
)

// Protocol is the protocol of a port.
type Protocol string

var (
	// ProtocolUDP is the UDP Protocol.
	ProtocolUDP Protocol = "UDP"
	// ProtocolTCP is the TCP Protocol.
	ProtocolTCP Protocol = "TCP"
)

// Protocols are the Protocols a port mapping is made for,
// in the order they are requested.
var Protocols = []Protocol{ProtocolTCP, ProtocolUDP}

// PortMapping is the mapping of an external port
// to an internal address.
type PortMapping struct {
	RemoteHost     string
	ExternalPort   uint16
	Protocol       Protocol
	InternalPort   uint16
	InternalClient net.IP
	Enabled        bool
	Description    string
	// LeaseDuration of 0 asks the gateway for a mapping that does not expire.
	LeaseDuration time.Duration
}

type Client struct {
	GoUPnPClient GoUPnPClient
}

func (c *Client) GetExternalIPAddress(ctx context.Context) (net.IP, error) {
	ips, err := c.GoUPnPClient.GetExternalIPAddressCtx(ctx)
	if err != nil {
		return nil, err
	}

	ip := net.ParseIP(ips)
	if ip == nil {
		return nil, fmt.Errorf("unable to parse ip: %s", ips)
	}

	return ip, nil
}

func (c *Client) AddPortMapping(ctx context.Context, pm *PortMapping) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("adding port mapping",
		"protocol", pm.Protocol,
		"externalPort", pm.ExternalPort,
		"internalClient", pm.InternalClient.String(),
		"internalPort", pm.InternalPort,
	)

	return c.GoUPnPClient.AddPortMappingCtx(ctx,
		pm.RemoteHost,
		pm.ExternalPort,
		string(pm.Protocol),
		pm.InternalPort,
		internalClientString(pm.InternalClient),
		pm.Enabled,
		pm.Description,
		uint32(pm.LeaseDuration.Seconds()),
	)
}

// DeletePortMapping removes the mapping identified by
// the given PortMapping's RemoteHost, ExternalPort and Protocol.
func (c *Client) DeletePortMapping(ctx context.Context, pm *PortMapping) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("deleting port mapping",
		"protocol", pm.Protocol,
		"externalPort", pm.ExternalPort,
	)

	return c.GoUPnPClient.DeletePortMappingCtx(ctx,
		pm.RemoteHost,
		pm.ExternalPort,
		string(pm.Protocol),
	)
}

func internalClientString(ip net.IP) string {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.String()
	}

	return ip.String()
}

func (c *Client) GetServiceIPAddress(context.Context) (net.IP, error) {
	location := c.GoUPnPClient.GetServiceClient().Location
	if location == nil {
		return nil, fmt.Errorf("UPnP service has no location")
	}

	ips, err := net.LookupIP(location.Hostname())
	if err != nil {
		return nil, err
	}

	for _, ip := range ips {
		if ip != nil {
			return ip, nil
		}
	}

	return nil, fmt.Errorf(`no IP addresses found for UPnP service location "%s"`, location)
}

func (c *Client) GetSourceIPAddress(context.Context) net.IP {
	return c.GoUPnPClient.GetServiceClient().LocalAddr()
}

type GoUPnPClient interface {
	GetExternalIPAddressCtx(context.Context) (string, error)
	GetServiceClient() *goupnp.ServiceClient
	AddPortMappingCtx(
		context.Context,
		string,
		uint16,
		string,
		uint16,
		string,
		bool,
		string,
		uint32,
	) error
	DeletePortMappingCtx(
		context.Context,
		string,
		uint16,
		string,
	) error
}

var (
	ErrNoClients = errors.New("no UPnP internet gateway clients found")
)

type getClients func(context.Context) ([]GoUPnPClient, []error, error)

type NewClientOpts struct {
	getClients []getClients
}

type NewClientOpt func(*NewClientOpts)

func castToGoUPnPClients[client GoUPnPClient](clients []client) []GoUPnPClient {
	return xslice.Map(clients, func(cli client, _ int) GoUPnPClient {
		return cli
	})
}

func withClients[client GoUPnPClient](newClients func(context.Context) ([]client, []error, error)) NewClientOpt {
	return func(opts *NewClientOpts) {
		opts.getClients = append(opts.getClients, func(ctx context.Context) ([]GoUPnPClient, []error, error) {
			clients, errs, err := newClients(ctx)
			return castToGoUPnPClients(clients), errs, err
		})
	}
}

var (
	WithIG2WANIPConnection2   = withClients(internetgateway2.NewWANIPConnection2ClientsCtx)
	WithIG2WANIPConnection1   = withClients(internetgateway2.NewWANIPConnection1ClientsCtx)
	WithIG2WANPPPConnection1  = withClients(internetgateway2.NewWANPPPConnection1ClientsCtx)
	WithIG1WANIP1Connection1  = withClients(internetgateway1.NewWANIPConnection1ClientsCtx)
	WithIG1WANPPP1Connection1 = withClients(internetgateway1.NewWANPPPConnection1ClientsCtx)
)

// WithAnyConnection tries every supported connection service,
// preferring IGDv2 and IP connections.
func WithAnyConnection(opts *NewClientOpts) {
	opts.getClients = []getClients{}
	WithIG2WANIPConnection2(opts)
	WithIG2WANIPConnection1(opts)
	WithIG2WANPPPConnection1(opts)
	WithIG1WANIP1Connection1(opts)
	WithIG1WANPPP1Connection1(opts)
}

func WithGoUPnPClient(client GoUPnPClient) NewClientOpt {
	return func(opts *NewClientOpts) {
		opts.getClients = []getClients{
			func(ctx context.Context) ([]GoUPnPClient, []error, error) {
				return []GoUPnPClient{client}, nil, nil
			},
		}
	}
}

// NewClient discovers a UPnP internet gateway, returning a Client for
// the first connection service found. It does not retry.
func NewClient(ctx context.Context, opts ...NewClientOpt) (*Client, error) {
	o := &NewClientOpts{}

	for _, opt := range opts {
		opt(o)
	}

	log := logr.FromContextOrDiscard(ctx)

	for i, getClient := range o.getClients {
		goUPnPClient, err := getOneGoUPnPClient(ctx, getClient)
		if err != nil {
			if errors.Is(err, ErrNoClients) {
				log.V(1).Info("no UPnP clients found for connection service", "attempt", i)
				continue
			}

			return nil, err
		}

		return &Client{goUPnPClient}, nil
	}

	return nil, ErrNoClients
}

func getOneGoUPnPClient(ctx context.Context, f getClients) (GoUPnPClient, error) {
	clients, _, err := f(ctx)
	if err != nil {
		return nil, err
	} else if len(clients) == 0 {
		return nil, ErrNoClients
	}

	return clients[0], nil
}
