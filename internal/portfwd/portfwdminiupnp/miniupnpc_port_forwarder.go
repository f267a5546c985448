package portfwdminiupnp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strings"

	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/go-logr/logr"
)

// ErrNoUpnpc is returned when the upnpc binary cannot be found.
var ErrNoUpnpc = errors.New("upnpc not found in PATH")

// Runner runs a command, returning its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// PortForwarder implements portfwd.Gateway by running miniupnpc's upnpc.
type PortForwarder struct {
	Path string
	Run  Runner
}

var _ portfwd.Gateway = &PortForwarder{}

// NewPortForwarder finds upnpc and checks that it can reach a gateway.
func NewPortForwarder(ctx context.Context) (*PortForwarder, error) {
	path, err := exec.LookPath("upnpc")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUpnpc, err)
	}

	p := &PortForwarder{Path: path}

	if _, err := p.GetExternalIPAddress(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *PortForwarder) run(ctx context.Context, args ...string) ([]byte, error) {
	var (
		run  = p.Run
		path = p.Path
	)
	if run == nil {
		run = runCommand
	}
	if path == "" {
		path = "upnpc"
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("running upnpc", "args", args)

	out, err := run(ctx, path, args...)
	if err != nil {
		return out, fmt.Errorf("upnpc %s: %w: %s", strings.Join(args, " "), err, bytes.TrimSpace(out))
	}

	if line := failureLine(out); line != "" {
		return out, fmt.Errorf("upnpc %s: %s", strings.Join(args, " "), line)
	}

	return out, nil
}

var failedWithCode = regexp.MustCompile(`failed with code|No IGD UPnP Device found|No valid UPNP Internet Gateway Device found`)

func failureLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); failedWithCode.MatchString(line) {
			return line
		}
	}

	return ""
}

// AddArgs returns the upnpc arguments that add pm.
func AddArgs(pm *portfwd.PortMapping) []string {
	args := []string{}
	if pm.Description != "" {
		args = append(args, "-e", pm.Description)
	}

	args = append(args,
		"-a",
		pm.InternalClient.String(),
		fmt.Sprint(pm.InternalPort), fmt.Sprint(pm.ExternalPort),
		string(pm.Protocol),
	)
	if pm.LeaseDuration != 0 || pm.RemoteHost != "" {
		args = append(args, fmt.Sprint(int(pm.LeaseDuration.Seconds())))
	}
	if pm.RemoteHost != "" {
		args = append(args, pm.RemoteHost)
	}

	return args
}

// DeleteArgs returns the upnpc arguments that delete pm.
func DeleteArgs(pm *portfwd.PortMapping) []string {
	args := []string{"-d", fmt.Sprint(pm.ExternalPort), string(pm.Protocol)}
	if pm.RemoteHost != "" {
		args = append(args, pm.RemoteHost)
	}

	return args
}

// AddPortMapping implements portfwd.PortForwarder.
func (p *PortForwarder) AddPortMapping(ctx context.Context, pm *portfwd.PortMapping) error {
	_, err := p.run(ctx, AddArgs(pm)...)
	return err
}

// DeletePortMapping implements portfwd.PortForwarder.
func (p *PortForwarder) DeletePortMapping(ctx context.Context, pm *portfwd.PortMapping) error {
	_, err := p.run(ctx, DeleteArgs(pm)...)
	return err
}

var externalIPAddressLine = regexp.MustCompile(`ExternalIPAddress\s*=\s*(\S+)`)

// GetExternalIPAddress implements extip.ExternalIPAddressGetter.
func (p *PortForwarder) GetExternalIPAddress(ctx context.Context) (net.IP, error) {
	out, err := p.run(ctx, "-s")
	if err != nil {
		return nil, err
	}

	match := externalIPAddressLine.FindSubmatch(out)
	if match == nil {
		return nil, fmt.Errorf("upnpc -s: no ExternalIPAddress in output")
	}

	ip := net.ParseIP(string(match[1]))
	if ip == nil {
		return nil, fmt.Errorf("unable to parse ip: %s", match[1])
	}

	return ip, nil
}
