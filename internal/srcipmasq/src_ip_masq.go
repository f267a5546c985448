package srcipmasq

import (
	"context"
	"net"
)

// Masq is the IP to masquerade as when targeting a specific destination.
type Masq struct {
	OriginalSource, Destination, NewSource net.IP
}

// IsIPv4 reports whether the Masq's Destination is an IPv4 address.
func (m *Masq) IsIPv4() bool {
	return m.Destination.To4() != nil
}

// SourceIPAddressMasqer masqs traffic to an IP address as an IP address.
// The returned func undoes the masquerade.
type SourceIPAddressMasqer interface {
	MasqSourceIPAddress(context.Context, *Masq) (func() error, error)
}
