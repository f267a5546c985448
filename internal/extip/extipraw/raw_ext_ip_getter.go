package extipraw

import (
	"context"
	"fmt"
	"net"
)

// ExternalIPAddressGetter implements extip.ExternalIPAddressGetter
// by providing itself as the external IP address.
type ExternalIPAddressGetter net.IP

// Parse returns an ExternalIPAddressGetter for the given textual IP address.
func Parse(s string) (ExternalIPAddressGetter, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("parse external IP address: %s", s)
	}

	return ExternalIPAddressGetter(ip), nil
}

// GetExternalIPAddress implements extip.ExternalIPAddressGetter.
func (g ExternalIPAddressGetter) GetExternalIPAddress(context.Context) (net.IP, error) {
	return net.IP(g), nil
}
