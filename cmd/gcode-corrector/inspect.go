package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/gcode"
)

// inspectRow is one line of the inspect report.
type inspectRow struct {
	Line     int     `json:"line"`
	Class    string  `json:"class"`
	Outcome  string  `json:"outcome"`
	Length   float64 `json:"length,omitempty"`
	DeltaE   float64 `json:"delta_e,omitempty"`
	Start    *side   `json:"start,omitempty"`
	End      *side   `json:"end,omitempty"`
	Pieces   int     `json:"pieces,omitempty"`
	Relative bool    `json:"relative_e"`
	Text     string  `json:"text"`
	Error    string  `json:"error,omitempty"`
}

type side struct {
	Angle  float64 `json:"angle"`
	Factor float64 `json:"factor"`
}

func newInspectCmd() *cobra.Command {
	var (
		all    bool
		asJSON bool
		of     *optionFlags
	)
	cmd := &cobra.Command{
		Use:   "inspect INPUT",
		Short: "Show how each line would be classified and corrected",
		Long: `Replay a G-code file without writing anything and report, per command,
the classification, the corrector's outcome and the corner angles and
flow factors of corrected segments.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := of.resolve(cmd)
			if err != nil {
				return err
			}
			c, err := corrector.New(opts)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.ReadError(args[0], err)
			}
			lines, _ := corrector.SplitLines(data)
			res, err := c.Run(cmd.Context(), lines, nil)
			if err != nil {
				return err
			}

			rows := inspectRows(res, all)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(rows))
			for _, r := range rows {
				if r.Error != "" {
					fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("note:"), r.Error)
				}
			}
			printSummary(cmd.OutOrStdout(), args[0]+" (dry run)", res.Stats)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include comments and blank lines")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	of = addOptionFlags(cmd)
	return cmd
}

func inspectRows(res *corrector.Result, all bool) []inspectRow {
	rows := make([]inspectRow, 0, len(res.Program.Lines))
	for i := range res.Program.Lines {
		ln := &res.Program.Lines[i]
		if !all && !ln.IsCommand {
			continue
		}
		d := res.Decisions[i]
		row := inspectRow{
			Line:     ln.Index + 1,
			Class:    ln.Class.String(),
			Outcome:  d.Outcome.String(),
			Relative: ln.RelativeExtrusion,
			Text:     strings.TrimRight(ln.Raw, "\r"),
		}
		if d.Err != nil {
			row.Error = d.Err.Error()
		}
		if ln.Class.Kind == gcode.KindMotion && !ln.ParseFailed {
			row.Length = ln.Length()
			row.DeltaE = ln.DeltaE()
		}
		if d.Outcome == corrector.OutcomeCorrected {
			row.Pieces = len(ln.Expansion)
			if d.Start.Enabled {
				row.Start = &side{Angle: d.Start.Angle, Factor: d.Start.Factor}
			}
			if d.End.Enabled {
				row.End = &side{Angle: d.End.Angle, Factor: d.End.Factor}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func renderInspect(rows []inspectRow) string {
	fmtSide := func(s *side) string {
		if s == nil {
			return ""
		}
		return fmt.Sprintf("%5.1f° ×%.3f", s.Angle, s.Factor)
	}
	fmtNum := func(v float64) string {
		if v == 0 {
			return ""
		}
		return fmt.Sprintf("%.3f", v)
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			fmt.Sprint(r.Line), r.Class, r.Outcome,
			fmtNum(r.Length), fmtNum(r.DeltaE),
			fmtSide(r.Start), fmtSide(r.End), r.Text,
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	corrected := cell.Foreground(lipgloss.Color("10"))
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LINE", "CLASS", "OUTCOME", "LENGTH", "ΔE", "START", "END", "TEXT").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row >= 0 && row < len(rows) && rows[row].Outcome == corrector.OutcomeCorrected.String() {
				return corrected
			}
			return cell
		}).
		String()
}
