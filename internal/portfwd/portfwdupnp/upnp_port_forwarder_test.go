package portfwdupnp_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/portfwd/portfwdupnp"
	"github.com/frantjc/port-registry/internal/srcipmasq"
	"github.com/frantjc/port-registry/internal/upnp"
	"github.com/huin/goupnp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoUPnPClient struct {
	adds, deletes []uint16
	err           error
}

func (f *fakeGoUPnPClient) GetExternalIPAddressCtx(context.Context) (string, error) {
	return "203.0.113.7", f.err
}

func (f *fakeGoUPnPClient) GetServiceClient() *goupnp.ServiceClient {
	return &goupnp.ServiceClient{}
}

func (f *fakeGoUPnPClient) AddPortMappingCtx(_ context.Context, _ string, externalPort uint16, _ string, _ uint16, _ string, _ bool, _ string, _ uint32) error {
	f.adds = append(f.adds, externalPort)
	return f.err
}

func (f *fakeGoUPnPClient) DeletePortMappingCtx(_ context.Context, _ string, externalPort uint16, _ string) error {
	f.deletes = append(f.deletes, externalPort)
	return f.err
}

type fakeMasqer struct {
	masqs []*srcipmasq.Masq
}

func (f *fakeMasqer) MasqSourceIPAddress(_ context.Context, masq *srcipmasq.Masq) (func() error, error) {
	f.masqs = append(f.masqs, masq)
	return func() error { return nil }, nil
}

func TestPortForwarderDelegatesToClient(t *testing.T) {
	var (
		fake = &fakeGoUPnPClient{}
		p    = portfwdupnp.NewPortForwarder(&upnp.Client{GoUPnPClient: fake}, nil)
		ctx  = context.Background()
		pm   = &portfwd.PortMapping{
			ExternalPort:   9090,
			Protocol:       upnp.ProtocolTCP,
			InternalPort:   8080,
			InternalClient: net.ParseIP("10.0.0.5"),
		}
	)

	require.NoError(t, p.AddPortMapping(ctx, pm))
	require.NoError(t, p.DeletePortMapping(ctx, pm))
	assert.Equal(t, []uint16{9090}, fake.adds)
	assert.Equal(t, []uint16{9090}, fake.deletes)

	ip, err := p.GetExternalIPAddress(ctx)
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.ParseIP("203.0.113.7")))
}

func TestPortForwarderSkipsMasqWithoutSourceAddress(t *testing.T) {
	var (
		fake   = &fakeGoUPnPClient{}
		masqer = &fakeMasqer{}
		p      = portfwdupnp.NewPortForwarder(&upnp.Client{GoUPnPClient: fake}, masqer)
	)

	require.NoError(t, p.AddPortMapping(context.Background(), &portfwd.PortMapping{
		ExternalPort:   9090,
		Protocol:       upnp.ProtocolUDP,
		InternalClient: net.ParseIP("10.0.0.5"),
	}))
	assert.Empty(t, masqer.masqs)
	assert.Equal(t, []uint16{9090}, fake.adds)
}

func TestPortForwarderPropagatesErrors(t *testing.T) {
	var (
		errGateway = errors.New("ConflictInMappingEntry")
		p          = portfwdupnp.NewPortForwarder(&upnp.Client{GoUPnPClient: &fakeGoUPnPClient{err: errGateway}}, nil)
	)

	assert.ErrorIs(t, p.AddPortMapping(context.Background(), &portfwd.PortMapping{Protocol: upnp.ProtocolTCP}), errGateway)
	assert.ErrorIs(t, p.DeletePortMapping(context.Background(), &portfwd.PortMapping{Protocol: upnp.ProtocolTCP}), errGateway)
}
