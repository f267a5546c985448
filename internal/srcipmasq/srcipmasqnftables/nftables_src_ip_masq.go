package srcipmasqnftables

import (
	"context"
	"fmt"

	"github.com/frantjc/port-registry/internal/srcipmasq"
	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

// TableName is the name of the table the masquerade rule is added to.
// The whole table is removed when the masquerade is undone.
const TableName = "portreg-masq"

// SourceIPAddressMasqer implements srcipmasq.SourceIPAddressMasqer
// using nftables.
type SourceIPAddressMasqer struct {
	*nftables.Conn
}

func New() (*SourceIPAddressMasqer, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, err
	}

	return &SourceIPAddressMasqer{conn}, nil
}

// Exprs returns the rule expressions that rewrite the source of packets
// from masq.OriginalSource to masq.Destination to masq.NewSource.
func Exprs(masq *srcipmasq.Masq) ([]expr.Any, error) {
	var (
		srcOffset, dstOffset, addrLen uint32
		natFamily                     uint32
		original, destination, source []byte
	)
	if masq.IsIPv4() {
		srcOffset, dstOffset, addrLen = 12, 16, 4
		natFamily = unix.NFPROTO_IPV4
		original, destination, source = masq.OriginalSource.To4(), masq.Destination.To4(), masq.NewSource.To4()
	} else if masq.Destination.To16() != nil {
		srcOffset, dstOffset, addrLen = 8, 24, 16
		natFamily = unix.NFPROTO_IPV6
		original, destination, source = masq.OriginalSource.To16(), masq.Destination.To16(), masq.NewSource.To16()
	} else {
		return nil, fmt.Errorf("unable to determine family of destination IP address %s", masq.Destination)
	}

	if original == nil || source == nil {
		return nil, fmt.Errorf("source IP addresses %s and %s must be the same family as destination %s", masq.OriginalSource, masq.NewSource, masq.Destination)
	}

	return []expr.Any{
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       srcOffset,
			Len:          addrLen,
		},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     original,
		},
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       dstOffset,
			Len:          addrLen,
		},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     destination,
		},
		&expr.Immediate{
			Register: 1,
			Data:     source,
		},
		&expr.NAT{
			Type:       expr.NATTypeSourceNAT,
			Family:     natFamily,
			RegAddrMin: 1,
		},
	}, nil
}

// MasqSourceIPAddress implements srcipmasq.SourceIPAddressMasqer.
func (m *SourceIPAddressMasqer) MasqSourceIPAddress(_ context.Context, masq *srcipmasq.Masq) (func() error, error) {
	exprs, err := Exprs(masq)
	if err != nil {
		return nil, err
	}

	family := nftables.TableFamilyIPv6
	if masq.IsIPv4() {
		family = nftables.TableFamilyIPv4
	}

	var (
		table = m.Conn.AddTable(&nftables.Table{
			Name:   TableName,
			Family: family,
		})
		chain = m.Conn.AddChain(&nftables.Chain{
			Name:     "postrouting",
			Table:    table,
			Hooknum:  nftables.ChainHookPostrouting,
			Priority: nftables.ChainPriorityNATSource,
			Type:     nftables.ChainTypeNAT,
		})
	)

	m.Conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: exprs,
	})

	if err := m.Conn.Flush(); err != nil {
		return nil, err
	}

	return func() error {
		m.Conn.DelTable(table)
		return m.Conn.Flush()
	}, nil
}
