package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frantjc/port-registry/internal/registry"
	xslice "github.com/frantjc/x/slice"
	"gopkg.in/yaml.v3"
)

const (
	GatewayUPnP   = "upnp"
	GatewayNATPMP = "natpmp"
	GatewayUpnpc  = "upnpc"

	MasqNone     = "none"
	MasqIPTables = "iptables"
	MasqNFTables = "nftables"

	EnvRegistry = "PORTREG_REGISTRY"
	EnvGateway  = "PORTREG_GATEWAY"
)

// MaxLeaseDuration is the longest lease a gateway can be asked for,
// since leases are sent as a 32-bit count of seconds.
const MaxLeaseDuration = math.MaxUint32 * time.Second

var (
	Gateways = []string{GatewayUPnP, GatewayNATPMP, GatewayUpnpc}
	Masqs    = []string{MasqNone, MasqIPTables, MasqNFTables}
)

// Config is the configuration of portreg. The zero value of each
// field means unset.
type Config struct {
	Registry          string        `yaml:"registry,omitempty"`
	Gateway           string        `yaml:"gateway,omitempty"`
	ExternalIPAddress string        `yaml:"externalIPAddress,omitempty"`
	Masq              string        `yaml:"masq,omitempty"`
	LeaseDuration     time.Duration `yaml:"leaseDuration,omitempty"`
}

// Default is the Config used for anything left unset.
var Default = Config{
	Registry: registry.DefaultPath,
	Gateway:  GatewayUPnP,
	Masq:     MasqNone,
}

// DefaultPath returns the path of the config file
// under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "portreg", "config.yaml"), nil
}

// Load reads the config file at path. A missing or empty
// file is an empty Config; unknown keys are an error.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve merges flags, the environment and file over Default, in
// that order of precedence. ExternalIPAddress is not read from the
// environment here, since it is looked up when it is used.
func Resolve(flags, file *Config) *Config {
	return &Config{
		Registry:          xslice.Coalesce(flags.Registry, strings.TrimSpace(os.Getenv(EnvRegistry)), file.Registry, Default.Registry),
		Gateway:           xslice.Coalesce(flags.Gateway, strings.TrimSpace(os.Getenv(EnvGateway)), file.Gateway, Default.Gateway),
		ExternalIPAddress: xslice.Coalesce(flags.ExternalIPAddress, file.ExternalIPAddress),
		Masq:              xslice.Coalesce(flags.Masq, file.Masq, Default.Masq),
		LeaseDuration:     xslice.Coalesce(flags.LeaseDuration, file.LeaseDuration, Default.LeaseDuration),
	}
}

// Validate reports whether c names a known gateway and masquerade.
func (c *Config) Validate() error {
	if !xslice.Includes(Gateways, c.Gateway) {
		return fmt.Errorf("unknown gateway %q, expected one of %s", c.Gateway, strings.Join(Gateways, ", "))
	}

	if !xslice.Includes(Masqs, c.Masq) {
		return fmt.Errorf("unknown masq %q, expected one of %s", c.Masq, strings.Join(Masqs, ", "))
	}

	if c.LeaseDuration < 0 {
		return fmt.Errorf("lease duration must not be negative: %s", c.LeaseDuration)
	}

	if c.LeaseDuration%time.Second != 0 {
		return fmt.Errorf("lease duration must be a whole number of seconds: %s", c.LeaseDuration)
	}

	if c.LeaseDuration > MaxLeaseDuration {
		return fmt.Errorf("lease duration must not exceed %s: %s", MaxLeaseDuration, c.LeaseDuration)
	}

	return nil
}
