package extipenv

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/frantjc/port-registry/internal/extip"
)

// DefaultEnvVar is the environment variable read by
// ExternalIPAddressGetter when none is given.
const DefaultEnvVar = "PORTREG_EXTERNAL_IP"

// NewExternalIPAddressGetter returns an ExternalIPAddressGetter
// that gets the external IP address from the value of the given
// environment variable.
func NewExternalIPAddressGetter(envVar string) extip.ExternalIPAddressGetter {
	if envVar == "" {
		envVar = DefaultEnvVar
	}

	return ExternalIPAddressGetter(envVar)
}

// ExternalIPAddressGetter implements extip.ExternalIPAddressGetter
// by getting the external IP address from the value of an environment
// variable at the time it is called.
type ExternalIPAddressGetter string

// IsSet reports whether the environment variable has a non-empty value.
func (g ExternalIPAddressGetter) IsSet() bool {
	return strings.TrimSpace(os.Getenv(string(g))) != ""
}

// GetExternalIPAddress implements extip.ExternalIPAddressGetter.
func (g ExternalIPAddressGetter) GetExternalIPAddress(context.Context) (net.IP, error) {
	ips := strings.TrimSpace(os.Getenv(string(g)))
	if ips == "" {
		return nil, fmt.Errorf("environment variable %s is not set", string(g))
	}

	ip := net.ParseIP(ips)
	if ip == nil {
		return nil, fmt.Errorf("unable to parse ip from %s: %s", string(g), ips)
	}

	return ip, nil
}
