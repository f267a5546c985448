package extip

import (
	"context"
	"net"
)

// ExternalIPAddressGetter gets the external IP address.
type ExternalIPAddressGetter interface {
	GetExternalIPAddress(context.Context) (net.IP, error)
}

// ExternalIPAddressGetterFunc is an adapter to allow the use of
// ordinary functions as ExternalIPAddressGetters.
type ExternalIPAddressGetterFunc func(context.Context) (net.IP, error)

// GetExternalIPAddress implements ExternalIPAddressGetter.
func (f ExternalIPAddressGetterFunc) GetExternalIPAddress(ctx context.Context) (net.IP, error) {
	return f(ctx)
}
