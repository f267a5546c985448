package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/frantjc/port-registry/internal/config"
	"github.com/frantjc/port-registry/internal/extip"
	"github.com/frantjc/port-registry/internal/extip/extipenv"
	"github.com/frantjc/port-registry/internal/extip/extipraw"
	"github.com/frantjc/port-registry/internal/logutil"
	"github.com/frantjc/port-registry/internal/mapping"
	"github.com/frantjc/port-registry/internal/portfwd"
	"github.com/frantjc/port-registry/internal/prompt"
	"github.com/frantjc/port-registry/internal/prompt/prompthuh"
	"github.com/frantjc/port-registry/internal/prompt/promptline"
	"github.com/frantjc/port-registry/internal/registry"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// NewEntrypoint returns the command which acts as
// the entrypoint for `portreg`.
func NewEntrypoint() *cobra.Command {
	var (
		slogConfig = new(logutil.SlogConfig)
		configPath string
		e          = &entrypoint{flags: new(config.Config), cfg: new(config.Config)}
		cmd        = &cobra.Command{
			Use:           "portreg",
			Short:         "Keep a registry of port mappings and forward them on the gateway",
			Version:       SemVer(),
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
				var (
					log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
						Level: slogConfig,
					}))
					ctx = logutil.SloggerInto(cmd.Context(), log)
				)
				cmd.SetContext(ctx)

				file, err := loadConfig(ctx, configPath)
				if err != nil {
					return err
				}

				*e.cfg = *config.Resolve(e.flags, file)
				if err := e.cfg.Validate(); err != nil {
					return err
				}

				if e.cfg.ExternalIPAddress != "" {
					if _, err := extipraw.Parse(e.cfg.ExternalIPAddress); err != nil {
						return err
					}
				}

				log.Debug("resolved config", "registry", e.cfg.Registry, "gateway", e.cfg.Gateway, "masq", e.cfg.Masq)

				return nil
			},
		}
	)

	cmd.Flags().Bool("version", false, "Version for "+cmd.Name())
	cmd.SetVersionTemplate("{{ .Name }}{{ .Version }}\n")

	slogConfig.AddFlags(cmd.PersistentFlags())

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/portreg/config.yaml)")
	cmd.PersistentFlags().StringVar(&e.flags.Registry, "registry", "", fmt.Sprintf("Registry file (env %s, default %s)", config.EnvRegistry, registry.DefaultPath))
	cmd.PersistentFlags().StringVar(&e.flags.Gateway, "gateway", "", fmt.Sprintf("Gateway protocol, one of %v (env %s, default %s)", config.Gateways, config.EnvGateway, config.Default.Gateway))
	cmd.PersistentFlags().StringVar(&e.flags.ExternalIPAddress, "external-ip", "", fmt.Sprintf("External IP address to list instead of asking the gateway (env %s)", extipenv.DefaultEnvVar))
	cmd.PersistentFlags().StringVar(&e.flags.Masq, "masq", "", fmt.Sprintf("Source IP address masquerade for UPnP mappings to other hosts, one of %v", config.Masqs))

	cmd.AddCommand(
		e.newAddCommand(),
		e.newListCommand(),
		e.newRemoveCommand(),
		e.newEnableCommand(),
		e.newDisableCommand(),
	)

	return cmd
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	path, err := config.DefaultPath()
	if err != nil {
		logutil.SloggerFrom(ctx).Debug("no default config path", "err", err)
		return &config.Config{}, nil
	}

	return config.Load(path)
}

// entrypoint holds the configuration shared by portreg's subcommands.
// cfg is only populated once flags are parsed.
type entrypoint struct {
	flags *config.Config
	cfg   *config.Config
}

func newPrompter(cmd *cobra.Command) prompt.Prompter {
	if f, ok := cmd.InOrStdin().(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return prompthuh.Prompter{}
	}

	return promptline.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

func (e *entrypoint) service(cmd *cobra.Command) *mapping.Service {
	return &mapping.Service{
		Store:         registry.NewStore(e.cfg.Registry),
		Prompter:      newPrompter(cmd),
		Out:           cmd.OutOrStdout(),
		LeaseDuration: e.cfg.LeaseDuration,
	}
}

// externalIPAddressOverride returns where to get the external IP address
// from instead of the gateway, or nil if it should come from the gateway.
func (e *entrypoint) externalIPAddressOverride() extip.ExternalIPAddressGetter {
	if e.flags.ExternalIPAddress != "" {
		ext, _ := extipraw.Parse(e.flags.ExternalIPAddress)
		return ext
	}

	if env := extipenv.ExternalIPAddressGetter(extipenv.DefaultEnvVar); env.IsSet() {
		return env
	}

	if e.cfg.ExternalIPAddress != "" {
		ext, _ := extipraw.Parse(e.cfg.ExternalIPAddress)
		return ext
	}

	return nil
}

// externalIPAddressGetter only discovers the gateway once
// the external IP address is actually needed.
func (e *entrypoint) externalIPAddressGetter() extip.ExternalIPAddressGetter {
	if ext := e.externalIPAddressOverride(); ext != nil {
		return ext
	}

	return extip.ExternalIPAddressGetterFunc(func(ctx context.Context) (net.IP, error) {
		gw, err := e.gateway(ctx)
		if err != nil {
			return nil, err
		}

		return gw.GetExternalIPAddress(ctx)
	})
}

func (e *entrypoint) gateway(ctx context.Context) (portfwd.Gateway, error) {
	return getGateway(ctx, e.cfg, e.externalIPAddressOverride())
}

func parseIndex(args []string) (*int, error) {
	if len(args) == 0 {
		return nil, nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, &mapping.ParseError{Field: "index", Value: args[0], Err: errors.Unwrap(err)}
	}

	return &index, nil
}
