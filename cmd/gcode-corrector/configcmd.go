package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gcode-corrector/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show corrector configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		of    *optionFlags
	)
	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file with the default settings",
		Long: `Write a [corrector] config file. The format follows the extension:
.yaml or .yml writes YAML, anything else the INI format. Option flags
change the written values.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "gcode-corrector.cfg"
			if len(args) == 1 {
				path = args[0]
			}
			opts, err := of.resolve(cmd)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(cmd.Context(), path, opts, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file, keeping a timestamped backup")
	of = addOptionFlags(cmd)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var of *optionFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := of.resolve(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.Render(opts))
			return nil
		},
	}
	of = addOptionFlags(cmd)
	return cmd
}
