package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-latest"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, optionally checking for a newer release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gcode-corrector version %s\n", Version)
			if !check {
				return nil
			}
			res, err := latest.Check(&latest.GithubTag{
				Owner:      "gcode-corrector",
				Repository: "gcode-corrector",
			}, Version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if res.Outdated {
				fmt.Fprintf(out, "a newer version is available: %s\n", res.Current)
			} else {
				fmt.Fprintln(out, okStyle.Render("up to date"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
