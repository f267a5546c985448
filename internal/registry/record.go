package registry

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Record is one desired port mapping: traffic arriving on the gateway's
// ExternalPort should be forwarded to DestinationAddress:DestinationPort.
type Record struct {
	DestinationAddress netip.Addr `json:"destination_address"`
	DestinationPort    uint16     `json:"destination_port"`
	ExternalPort       uint16     `json:"external_port"`
	Description        string     `json:"description"`
}

// recordJSON is the on-disk shape of a Record. The legacy keys were
// written by earlier versions of the tool and are only ever read.
type recordJSON struct {
	DestinationAddress *netip.Addr `json:"destination_address"`
	DestinationPort    *uint16     `json:"destination_port"`
	ExternalPort       *uint16     `json:"external_port"`
	Description        *string     `json:"description"`

	LegacyDestinationAddress *netip.Addr `json:"dest_ip"`
	LegacyDestinationPort    *uint16     `json:"dest_port"`
	LegacyExternalPort       *uint16     `json:"ext_port"`
}

// UnmarshalJSON implements json.Unmarshaler. Every field must be
// present under either its canonical or its legacy key.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var (
		addr     = coalesce(raw.DestinationAddress, raw.LegacyDestinationAddress)
		destPort = coalesce(raw.DestinationPort, raw.LegacyDestinationPort)
		extPort  = coalesce(raw.ExternalPort, raw.LegacyExternalPort)
	)
	switch {
	case addr == nil || !addr.IsValid():
		return fmt.Errorf("record missing valid destination_address")
	case destPort == nil:
		return fmt.Errorf("record missing destination_port")
	case extPort == nil:
		return fmt.Errorf("record missing external_port")
	case raw.Description == nil:
		return fmt.Errorf("record missing description")
	}

	*r = Record{
		DestinationAddress: *addr,
		DestinationPort:    *destPort,
		ExternalPort:       *extPort,
		Description:        *raw.Description,
	}

	return nil
}

func coalesce[T any](ptrs ...*T) *T {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}

	return nil
}

// ParseAddr parses a destination address from user input.
func ParseAddr(s string) (netip.Addr, error) {
	return netip.ParseAddr(strings.TrimSpace(s))
}

// ParsePort parses a non-zero port from user input.
func ParsePort(s string) (uint16, error) {
	port, err := ParseUint[uint16](s)
	if err != nil {
		return 0, err
	}

	if port == 0 {
		return 0, fmt.Errorf("port must be between 1 and 65535")
	}

	return port, nil
}

// ParseUint parses s as a base 10 unsigned integer that fits in T.
func ParseUint[T constraints.Unsigned](s string) (T, error) {
	var zero T
	u, err := strconv.ParseUint(strings.TrimSpace(s), 10, bits.Len64(uint64(^zero)))
	if err != nil {
		return zero, err
	}

	return T(u), nil
}
