package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"cattle-chatbot/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the workflow activity registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [path]",
		Short: "Check required fields, unique ids and that every schema compiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultRegistryPath
			if len(args) == 1 {
				path = args[0]
			}

			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return errors.Wrapf(err, "failed to load registry %s", path)
			}
			if err := reg.Validate(); err != nil {
				return errors.Wrapf(err, "registry %s is invalid", path)
			}

			pterm.Success.Printfln("%s: %d activities, version %s", path, len(reg.Activities), reg.Version)
			return nil
		},
	})
	return cmd
}
