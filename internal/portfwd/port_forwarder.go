package portfwd

import (
	"context"

	"github.com/frantjc/port-registry/internal/extip"
	"github.com/frantjc/port-registry/internal/upnp"
)

type (
	PortMapping = upnp.PortMapping
	Protocol    = upnp.Protocol
)

// Protocols are the Protocols a mapping is forwarded for, in order.
var Protocols = upnp.Protocols

// PortForwarder forwards the given port.
type PortForwarder interface {
	AddPortMapping(context.Context, *PortMapping) error
	// DeletePortMapping removes a mapping previously added with the
	// same Protocol and ExternalPort.
	DeletePortMapping(context.Context, *PortMapping) error
}

// Gateway is a network gateway that can forward ports
// and report its external IP address.
type Gateway interface {
	extip.ExternalIPAddressGetter
	PortForwarder
}
