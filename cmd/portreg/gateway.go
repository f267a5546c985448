package main

import (
	"context"
	"fmt"
	"net"

	"github.com/frantjc/port-registry/internal/config"
	"github.com/frantjc/port-registry/internal/extip"
	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/portfwd/portfwdminiupnp"
	"github.com/frantjc/port-registry/internal/portfwd/portfwdnatpmp"
	"github.com/frantjc/port-registry/internal/portfwd/portfwdupnp"
	"github.com/frantjc/port-registry/internal/srcipmasq"
	"github.com/frantjc/port-registry/internal/srcipmasq/srcipmasqiptables"
	"github.com/frantjc/port-registry/internal/srcipmasq/srcipmasqnftables"
	"github.com/frantjc/port-registry/internal/upnp"
)

// discoverGateway finds the gateway named by cfg.Gateway.
var discoverGateway = func(ctx context.Context, cfg *config.Config) (portfwd.Gateway, error) {
	switch cfg.Gateway {
	case config.GatewayNATPMP:
		pf, err := portfwdnatpmp.NewPortForwarder(ctx)
		if err != nil {
			return nil, err
		}

		return pf, nil
	case config.GatewayUpnpc:
		pf, err := portfwdminiupnp.NewPortForwarder(ctx)
		if err != nil {
			return nil, err
		}

		return pf, nil
	}

	upnpClient, err := upnp.NewClient(ctx, upnp.WithAnyConnection)
	if err != nil {
		return nil, err
	}

	masqer, err := newSourceIPAddressMasqer(cfg.Masq, upnpClient.GetSourceIPAddress(ctx))
	if err != nil {
		return nil, err
	}

	return portfwdupnp.NewPortForwarder(upnpClient, masqer), nil
}

func newSourceIPAddressMasqer(masq string, source net.IP) (srcipmasq.SourceIPAddressMasqer, error) {
	switch masq {
	case config.MasqIPTables:
		return srcipmasqiptables.New(source)
	case config.MasqNFTables:
		return srcipmasqnftables.New()
	}

	return nil, nil
}

// gateway is a portfwd.Gateway whose external IP address
// may come from somewhere other than the gateway itself.
type gateway struct {
	extip.ExternalIPAddressGetter
	portfwd.PortForwarder
}

func getGateway(ctx context.Context, cfg *config.Config, ext extip.ExternalIPAddressGetter) (portfwd.Gateway, error) {
	gw, err := discoverGateway(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("discover gateway: %w", err)
	}

	if ext == nil {
		return gw, nil
	}

	return &gateway{ext, gw}, nil
}
