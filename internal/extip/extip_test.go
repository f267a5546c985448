package extip_test

import (
	"context"
	"net"
	"testing"

	"github.com/frantjc/port-registry/internal/extip"
	"github.com/frantjc/port-registry/internal/extip/extipenv"
	"github.com/frantjc/port-registry/internal/extip/extipraw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalIPAddressGetterFunc(t *testing.T) {
	var (
		want   = net.ParseIP("198.51.100.1")
		called bool
		getter extip.ExternalIPAddressGetter = extip.ExternalIPAddressGetterFunc(func(context.Context) (net.IP, error) {
			called = true
			return want, nil
		})
	)

	got, err := getter.GetExternalIPAddress(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, want.Equal(got))
}

func TestEnvExternalIPAddressGetter(t *testing.T) {
	getter := extipenv.NewExternalIPAddressGetter("")
	assert.Equal(t, extipenv.ExternalIPAddressGetter(extipenv.DefaultEnvVar), getter)

	t.Setenv(extipenv.DefaultEnvVar, "")
	assert.False(t, getter.(extipenv.ExternalIPAddressGetter).IsSet())

	_, err := getter.GetExternalIPAddress(context.Background())
	assert.Error(t, err)

	t.Setenv(extipenv.DefaultEnvVar, " 203.0.113.9 ")
	assert.True(t, getter.(extipenv.ExternalIPAddressGetter).IsSet())

	ip, err := getter.GetExternalIPAddress(context.Background())
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.ParseIP("203.0.113.9")))

	t.Setenv(extipenv.DefaultEnvVar, "gateway")

	_, err = getter.GetExternalIPAddress(context.Background())
	assert.Error(t, err)
}

func TestRawExternalIPAddressGetter(t *testing.T) {
	getter, err := extipraw.Parse("2001:db8::1")
	require.NoError(t, err)

	ip, err := getter.GetExternalIPAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip.String())

	_, err = extipraw.Parse("nope")
	assert.Error(t, err)
}
