package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frantjc/port-registry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(write(t, `
registry: /var/lib/portreg/portreg.json
gateway: natpmp
externalIPAddress: 203.0.113.7
masq: nftables
leaseDuration: 1h
`))
	require.NoError(t, err)
	assert.Equal(t, &config.Config{
		Registry:          "/var/lib/portreg/portreg.json",
		Gateway:           config.GatewayNATPMP,
		ExternalIPAddress: "203.0.113.7",
		Masq:              config.MasqNFTables,
		LeaseDuration:     time.Hour,
	}, cfg)
}

func TestLoadMissingOrEmpty(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &config.Config{}, cfg)

	cfg, err = config.Load(write(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &config.Config{}, cfg)
}

func TestLoadMalformed(t *testing.T) {
	_, err := config.Load(write(t, "gateway: [upnp\n"))
	assert.Error(t, err)

	_, err = config.Load(write(t, "gatway: upnp\n"))
	assert.Error(t, err)
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(config.EnvRegistry, "/env/portreg.json")
	t.Setenv(config.EnvGateway, "")

	var (
		flags = &config.Config{Gateway: config.GatewayUpnpc}
		file  = &config.Config{
			Registry:      "/file/portreg.json",
			Gateway:       config.GatewayNATPMP,
			Masq:          config.MasqIPTables,
			LeaseDuration: time.Minute,
		}
	)

	assert.Equal(t, &config.Config{
		Registry:      "/env/portreg.json",
		Gateway:       config.GatewayUpnpc,
		Masq:          config.MasqIPTables,
		LeaseDuration: time.Minute,
	}, config.Resolve(flags, file))
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv(config.EnvRegistry, "")
	t.Setenv(config.EnvGateway, "")

	cfg := config.Resolve(&config.Config{}, &config.Config{})
	assert.Equal(t, &config.Default, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&config.Config{Gateway: "pcp", Masq: config.MasqNone}).Validate())
	assert.Error(t, (&config.Config{Gateway: config.GatewayUPnP, Masq: "pf"}).Validate())
	assert.Error(t, (&config.Config{Gateway: config.GatewayUPnP, Masq: config.MasqNone, LeaseDuration: -time.Second}).Validate())
}

func TestValidateLeaseDuration(t *testing.T) {
	valid := func(d time.Duration) error {
		return (&config.Config{Gateway: config.GatewayUPnP, Masq: config.MasqNone, LeaseDuration: d}).Validate()
	}

	assert.NoError(t, valid(0))
	assert.NoError(t, valid(time.Hour))
	assert.NoError(t, valid(config.MaxLeaseDuration))
	assert.Error(t, valid(500*time.Millisecond))
	assert.Error(t, valid(90*time.Second+time.Millisecond))
	assert.Error(t, valid(config.MaxLeaseDuration+time.Second))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/home/user/.config")
	t.Setenv("HOME", "/home/user")

	path, err := config.DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, "portreg", filepath.Base(filepath.Dir(path)))
}
