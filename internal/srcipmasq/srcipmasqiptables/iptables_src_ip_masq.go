package srcipmasqiptables

import (
	"context"
	"net"

	"github.com/coreos/go-iptables/iptables"
	"github.com/frantjc/port-registry/internal/srcipmasq"
)

const (
	Table = "nat"
	Chain = "POSTROUTING"
)

type SourceIPAddressMasqer struct {
	*iptables.IPTables
}

// New returns a SourceIPAddressMasqer for the address family of ip.
func New(ip net.IP) (*SourceIPAddressMasqer, error) {
	family := iptables.ProtocolIPv4
	if ip.To4() == nil {
		family = iptables.ProtocolIPv6
	}

	ipt, err := iptables.New(iptables.IPFamily(family))
	if err != nil {
		return nil, err
	}

	return &SourceIPAddressMasqer{ipt}, nil
}

// RuleSpec returns the SNAT rule specification for masq.
func RuleSpec(masq *srcipmasq.Masq) []string {
	return []string{
		"--source", masq.OriginalSource.String(),
		"--destination", masq.Destination.String(),
		"--jump", "SNAT",
		"--to-source", masq.NewSource.String(),
	}
}

// MasqSourceIPAddress implements srcipmasq.SourceIPAddressMasqer.
func (m *SourceIPAddressMasqer) MasqSourceIPAddress(_ context.Context, masq *srcipmasq.Masq) (func() error, error) {
	ruleSpec := RuleSpec(masq)

	if err := m.IPTables.Insert(Table, Chain, 1, ruleSpec...); err != nil {
		return nil, err
	}

	return func() error {
		return m.IPTables.DeleteIfExists(Table, Chain, ruleSpec...)
	}, nil
}
