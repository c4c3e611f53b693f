// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/log"
)

func newCorrectCmd() *cobra.Command {
	var (
		output  string
		inPlace bool
		quiet   bool
		of      *optionFlags
	)
	cmd := &cobra.Command{
		Use:   "correct INPUT",
		Short: "Correct a G-code file",
		Long: `Correct a G-code file and write the result next to it as
<name>_corrected<ext>, or to --output. The destination is replaced
atomically; line endings are preserved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := of.resolve(cmd)
			if err != nil {
				return err
			}
			src := args[0]
			dst := output
			switch {
			case inPlace && output != "":
				return fmt.Errorf("--in-place and --output are mutually exclusive")
			case inPlace:
				dst = src
			case dst == "":
				dst = corrector.OutputPath(src)
			}

			c, err := corrector.New(opts)
			if err != nil {
				return err
			}
			log.Default().WithFields(log.Fields{
				"src":   src,
				"dst":   dst,
				"flags": changedFlags(cmd),
			}).Debug("correcting")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var res *corrector.Result
			if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
				res, err = correctWithProgress(ctx, c, src, dst)
			} else {
				res, err = correctWithLog(ctx, c, src, dst)
			}
			if err != nil {
				return err
			}
			if !quiet {
				printSummary(cmd.OutOrStdout(), dst, res.Stats)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default <name>_corrected<ext>)")
	f.BoolVarP(&inPlace, "in-place", "i", false, "overwrite the input file")
	f.BoolVarP(&quiet, "quiet", "q", false, "no progress and no summary")
	of = addOptionFlags(cmd)
	return cmd
}

// correctWithProgress runs the correction under a bubbletea progress bar.
func correctWithProgress(ctx context.Context, c *corrector.Corrector, src, dst string) (*corrector.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(filepath.Base(src), cancel),
		tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	var (
		res  *corrector.Result
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, err = c.CorrectFile(ctx, src, dst, func(pct int) {
			p.Send(progressMsg(pct))
		})
		p.Send(doneMsg{err: err})
	}()

	if _, perr := p.Run(); perr != nil && ctx.Err() == nil {
		log.Default().WithError(perr).Warn("progress display failed")
	}
	<-done
	return res, err
}

// correctWithLog reports progress as log lines every 10 percent.
func correctWithLog(ctx context.Context, c *corrector.Corrector, src, dst string) (*corrector.Result, error) {
	l := log.Default().With(log.Fields{"src": filepath.Base(src)})
	last := -10
	return c.CorrectFile(ctx, src, dst, func(pct int) {
		if pct-last >= 10 || pct == 100 {
			last = pct
			l.Info("progress %d%%", pct)
		}
	})
}

func printSummary(w io.Writer, dst string, s corrector.Stats) {
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), valueStyle.Render(value))
	}
	fmt.Fprintln(w, okStyle.Render("✓ wrote "+dst))
	row("lines", fmt.Sprint(s.Lines))
	row("extruding moves", fmt.Sprint(s.Extruding))
	row("corrected", fmt.Sprint(s.Corrected))
	row("extrusion removed", fmt.Sprintf("%.4f", s.ExtrusionRemoved))
	row("output lines", fmt.Sprint(s.OutputLines))
	row("time", s.Duration.String())
	for _, o := range corrector.Outcomes() {
		if n := s.Skipped[o]; n > 0 {
			row("skipped "+o.String(), fmt.Sprint(n))
		}
	}
}
