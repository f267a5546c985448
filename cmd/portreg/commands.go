package main

import (
	"github.com/spf13/cobra"
)

func (e *entrypoint) newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add a mapping to the registry",
		Long:  "Prompt for a destination address and port, an external port and a description, and append the mapping to the registry. The gateway is not contacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.service(cmd).Add(cmd.Context())
		},
	}
}

func (e *entrypoint) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the mappings in the registry",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.service(cmd).List(cmd.Context(), e.externalIPAddressGetter())
		},
	}
}

func (e *entrypoint) newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [index]",
		Aliases: []string{"rm"},
		Short:   "Remove a mapping from the registry",
		Long:    "Remove the mapping at index from the registry, prompting for it if not given. Mappings after it move down one index. The mapping is not disabled on the gateway.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args)
			if err != nil {
				return err
			}

			return e.service(cmd).Remove(cmd.Context(), e.externalIPAddressGetter(), index)
		},
	}
}

func (e *entrypoint) newEnableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable [index]",
		Short: "Forward a mapping's external port on the gateway",
		Long:  "Ask the gateway to forward the external port of the mapping at index over TCP and UDP, prompting for the index if not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args)
			if err != nil {
				return err
			}

			gw, err := e.gateway(cmd.Context())
			if err != nil {
				return err
			}

			return e.service(cmd).Enable(cmd.Context(), gw, index)
		},
	}

	cmd.Flags().DurationVar(&e.flags.LeaseDuration, "lease-duration", 0, "Lease duration to request, 0 for no expiry")

	return cmd
}

func (e *entrypoint) newDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [index]",
		Short: "Stop forwarding a mapping's external port on the gateway",
		Long:  "Ask the gateway to stop forwarding the external port of the mapping at index over TCP and UDP, prompting for the index if not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args)
			if err != nil {
				return err
			}

			gw, err := e.gateway(cmd.Context())
			if err != nil {
				return err
			}

			return e.service(cmd).Disable(cmd.Context(), gw, index)
		},
	}
}
