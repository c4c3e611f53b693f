// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/log"
)

var logFile *log.RotatingFileWriter

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gcode-corrector",
		Short: "Soften extrusion at segment corners in G-code",
		Long: `gcode-corrector splits extruding moves that meet another extrusion at a
corner and reduces the filament laid down near the corner, removing the
blobs and zits left where the nozzle slows down to turn.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
				logFile = nil
			}
		},
	}
	root.AddCommand(
		newCorrectCmd(),
		newInspectCmd(),
		newConfigCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	pf := root.PersistentFlags()
	pf.String("log-level", "", "log level: debug, info, warn, error (default from $"+log.EnvLevel+" or info)")
	pf.String("log-format", "", "log format: text or json")
	pf.String("log-file", "", "also write logs to this file, rotated at 10 MB")
	pf.Bool("log-compress", false, "gzip rotated --log-file backups")
	pf.Bool("no-color", false, "disable coloured output")
	return root
}

// Exit statuses by error class.
const (
	exitFailure = 1
	exitConfig  = 2
	exitIO      = 3
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.IsConfig(err):
		return exitConfig
	case errors.IsIO(err):
		return exitIO
	default:
		return exitFailure
	}
}

// setupLogging applies the logging flags on top of the environment.
func setupLogging(cmd *cobra.Command, args []string) error {
	l := log.Default()
	flags := cmd.Flags()

	if v, _ := flags.GetString("log-level"); v != "" {
		l.SetLevel(log.ParseLevel(v))
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		l.SetFormat(log.ParseFormat(v))
	}
	if v, _ := flags.GetBool("no-color"); v {
		l.SetColorize(false)
		disableStyles()
	}
	if path, _ := flags.GetString("log-file"); path != "" {
		compress, _ := flags.GetBool("log-compress")
		w, err := log.TeeToFile(l, os.Stderr, log.RotationConfig{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 5,
			Compress:   compress,
		})
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = w
	}
	return nil
}
