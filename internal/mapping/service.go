package mapping

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"github.com/frantjc/port-registry/internal/extip"
	"github.com/frantjc/port-registry/internal/logutil"
	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/prompt"
	"github.com/frantjc/port-registry/internal/registry"
)

// Store persists the registry.
type Store interface {
	Load(context.Context) ([]registry.Record, error)
	Save(context.Context, []registry.Record) error
	// Lock guards a Load-modify-Save sequence. The returned func releases it.
	Lock(context.Context) (func() error, error)
}

// Service implements the registry's commands.
type Service struct {
	Store    Store
	Prompter prompt.Prompter
	// Out receives listings. Defaults to os.Stdout.
	Out io.Writer
	// LeaseDuration is requested for every mapping that Enable adds.
	// 0 asks for a mapping that does not expire.
	LeaseDuration time.Duration
}

func (s *Service) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}

	return s.Out
}

func (s *Service) lock(ctx context.Context) (func(), error) {
	unlock, err := s.Store.Lock(ctx)
	if err != nil {
		return nil, err
	}

	return func() {
		if err := unlock(); err != nil {
			logutil.SloggerFrom(ctx).Warn("unlocking registry", "err", err)
		}
	}, nil
}

func (s *Service) prompt(ctx context.Context, field, title string, parse func(string) error) error {
	in, err := s.Prompter.Prompt(ctx, title)
	if err != nil {
		return err
	}

	if err := parse(in); err != nil {
		return &ParseError{Field: field, Value: in, Err: err}
	}

	return nil
}

// Add prompts for a new mapping and appends it to the registry.
// Nothing is saved if any answer fails to parse.
func (s *Service) Add(ctx context.Context) error {
	var (
		record registry.Record
		err    error
	)

	if err := s.prompt(ctx, "destination_address", "Internal IP: ", func(in string) error {
		record.DestinationAddress, err = registry.ParseAddr(in)
		return err
	}); err != nil {
		return err
	}

	if err := s.prompt(ctx, "destination_port", "Internal Port: ", func(in string) error {
		record.DestinationPort, err = registry.ParsePort(in)
		return err
	}); err != nil {
		return err
	}

	if err := s.prompt(ctx, "external_port", "External Port: ", func(in string) error {
		record.ExternalPort, err = registry.ParsePort(in)
		return err
	}); err != nil {
		return err
	}

	if err := s.prompt(ctx, "description", "Description: ", func(in string) error {
		record.Description = in
		return nil
	}); err != nil {
		return err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.Store.Load(ctx)
	if err != nil {
		return err
	}

	if err := s.Store.Save(ctx, append(records, record)); err != nil {
		return err
	}

	logutil.SloggerFrom(ctx).Info("added mapping",
		"index", len(records)+1,
		"destination", netip.AddrPortFrom(record.DestinationAddress, record.DestinationPort).String(),
		"externalPort", record.ExternalPort,
	)

	return nil
}

// List writes one line per mapping to Out. The gateway's external
// address is only looked up if there is something to list.
func (s *Service) List(ctx context.Context, ext extip.ExternalIPAddressGetter) error {
	records, err := s.Store.Load(ctx)
	if err != nil {
		return err
	}

	return s.render(ctx, records, ext)
}

func (s *Service) render(ctx context.Context, records []registry.Record, ext extip.ExternalIPAddressGetter) error {
	if len(records) == 0 {
		return nil
	}

	ip, err := ext.GetExternalIPAddress(ctx)
	if err != nil {
		return fmt.Errorf("get external IP address: %w", err)
	}

	out := s.out()
	for i, record := range records {
		if _, err := fmt.Fprintf(out, "%d: %s -> %s  %s\n",
			i+1,
			netip.AddrPortFrom(record.DestinationAddress, record.DestinationPort),
			net.JoinHostPort(ip.String(), strconv.Itoa(int(record.ExternalPort))),
			record.Description,
		); err != nil {
			return err
		}
	}

	return nil
}

// resolveIndex returns the 0-based position of the mapping that index
// refers to. If index is nil, the mappings are listed and the user is
// asked to pick one.
func (s *Service) resolveIndex(ctx context.Context, records []registry.Record, ext extip.ExternalIPAddressGetter, index *int, verb string) (int, error) {
	if index == nil {
		if len(records) == 0 {
			return 0, &BoundsError{Len: 0}
		}

		if err := s.render(ctx, records, ext); err != nil {
			return 0, err
		}

		var i int
		if err := s.prompt(ctx, "index", fmt.Sprintf("Mapping to %s (1 - %d): ", verb, len(records)), func(in string) (err error) {
			i, err = strconv.Atoi(in)
			return err
		}); err != nil {
			return 0, err
		}

		index = &i
	}

	if *index < 1 || *index > len(records) {
		return 0, &BoundsError{Index: *index, Len: len(records)}
	}

	return *index - 1, nil
}

// Remove deletes a mapping from the registry. Mappings after it move
// down one index. The gateway is not contacted to undo the mapping.
func (s *Service) Remove(ctx context.Context, ext extip.ExternalIPAddressGetter, index *int) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.Store.Load(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(s.out(), "No mappings to remove")
		return err
	}

	i, err := s.resolveIndex(ctx, records, ext, index, "delete")
	if err != nil {
		return err
	}

	removed := records[i]
	if err := s.Store.Save(ctx, append(records[:i:i], records[i+1:]...)); err != nil {
		return err
	}

	logutil.SloggerFrom(ctx).Info("removed mapping", "index", i+1, "externalPort", removed.ExternalPort)

	return nil
}

// Enable asks the gateway to forward a mapping's external port
// over TCP and then UDP.
func (s *Service) Enable(ctx context.Context, gateway portfwd.Gateway, index *int) error {
	return s.forward(ctx, gateway, index, "enable", "add", gateway.AddPortMapping)
}

// Disable asks the gateway to stop forwarding a mapping's external
// port over TCP and then UDP.
func (s *Service) Disable(ctx context.Context, gateway portfwd.Gateway, index *int) error {
	return s.forward(ctx, gateway, index, "disable", "delete", gateway.DeletePortMapping)
}

func (s *Service) forward(ctx context.Context, gateway portfwd.Gateway, index *int, verb, op string, f func(context.Context, *portfwd.PortMapping) error) error {
	records, err := s.Store.Load(ctx)
	if err != nil {
		return err
	}

	i, err := s.resolveIndex(ctx, records, gateway, index, verb)
	if err != nil {
		return err
	}

	var (
		record    = records[i]
		log       = logutil.SloggerFrom(ctx)
		completed = []portfwd.Protocol{}
	)
	for _, protocol := range portfwd.Protocols {
		if err := f(ctx, s.portMapping(record, protocol)); err != nil {
			return &GatewayError{
				Op:           op,
				Protocol:     protocol,
				ExternalPort: record.ExternalPort,
				Completed:    completed,
				Err:          err,
			}
		}

		completed = append(completed, protocol)
		log.Debug(op+" port mapping", "protocol", protocol, "externalPort", record.ExternalPort)
	}

	log.Info(verb+"d mapping", "index", i+1, "externalPort", record.ExternalPort)

	return nil
}

func (s *Service) portMapping(record registry.Record, protocol portfwd.Protocol) *portfwd.PortMapping {
	return &portfwd.PortMapping{
		ExternalPort:   record.ExternalPort,
		Protocol:       protocol,
		InternalPort:   record.DestinationPort,
		InternalClient: net.IP(record.DestinationAddress.Unmap().AsSlice()),
		Enabled:        true,
		Description:    record.Description,
		LeaseDuration:  s.LeaseDuration,
	}
}
