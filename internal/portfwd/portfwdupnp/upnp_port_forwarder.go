package portfwdupnp

import (
	"context"

	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/srcipmasq"
	"github.com/frantjc/port-registry/internal/upnp"
	"github.com/go-logr/logr"
)

// PortForwarder implements portfwd.Gateway over a UPnP internet gateway.
// If SourceIPAddressMasqer is set, requests for a mapping to another host
// are sent with that host's address as their source, for gateways that
// only accept mappings to the requesting host.
type PortForwarder struct {
	*upnp.Client
	srcipmasq.SourceIPAddressMasqer
}

var _ portfwd.Gateway = &PortForwarder{}

func NewPortForwarder(client *upnp.Client, masqer srcipmasq.SourceIPAddressMasqer) *PortForwarder {
	return &PortForwarder{client, masqer}
}

// AddPortMapping implements portfwd.PortForwarder.
func (p *PortForwarder) AddPortMapping(ctx context.Context, pm *portfwd.PortMapping) error {
	restore, err := p.masq(ctx, pm)
	if err != nil {
		return err
	}
	defer restore()

	return p.Client.AddPortMapping(ctx, pm)
}

// DeletePortMapping implements portfwd.PortForwarder.
func (p *PortForwarder) DeletePortMapping(ctx context.Context, pm *portfwd.PortMapping) error {
	restore, err := p.masq(ctx, pm)
	if err != nil {
		return err
	}
	defer restore()

	return p.Client.DeletePortMapping(ctx, pm)
}

func (p *PortForwarder) masq(ctx context.Context, pm *portfwd.PortMapping) (func(), error) {
	noop := func() {}

	if p.SourceIPAddressMasqer == nil || pm.InternalClient == nil {
		return noop, nil
	}

	source := p.GetSourceIPAddress(ctx)
	if source == nil || source.Equal(pm.InternalClient) {
		return noop, nil
	}

	destination, err := p.GetServiceIPAddress(ctx)
	if err != nil {
		return nil, err
	}

	restore, err := p.MasqSourceIPAddress(ctx, &srcipmasq.Masq{
		OriginalSource: source,
		Destination:    destination,
		NewSource:      pm.InternalClient,
	})
	if err != nil {
		return nil, err
	}

	return func() {
		if err := restore(); err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "restoring source IP address masquerade")
		}
	}, nil
}
