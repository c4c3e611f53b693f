package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gcode-corrector/pkg/config"
	"gcode-corrector/pkg/corrector"
)

// optionFlags binds the corrector options to command flags. Flags the
// user sets win over the config file.
type optionFlags struct {
	configPath string
	opts       corrector.Options
}

func addOptionFlags(cmd *cobra.Command) *optionFlags {
	of := &optionFlags{opts: corrector.DefaultOptions()}
	f := cmd.Flags()
	f.StringVarP(&of.configPath, "config", "c", "", "config file (.cfg or .yaml) with a [corrector] section")
	f.BoolVar(&of.opts.StartEnabled, "start", of.opts.StartEnabled, "correct segment starts")
	f.BoolVar(&of.opts.EndEnabled, "end", of.opts.EndEnabled, "correct segment ends")
	f.Float64Var(&of.opts.StartLength, "start-length", of.opts.StartLength, "length of the start piece in mm")
	f.Float64Var(&of.opts.EndLength, "end-length", of.opts.EndLength, "length of the end piece in mm")
	f.Float64Var(&of.opts.StartFlowRatio, "start-flow-ratio", of.opts.StartFlowRatio, "flow kept on the start piece at a 90 degree corner")
	f.Float64Var(&of.opts.EndFlowRatio, "end-flow-ratio", of.opts.EndFlowRatio, "flow kept on the end piece at a 90 degree corner")
	f.Float64Var(&of.opts.MinSegmentLength, "min-segment-length", of.opts.MinSegmentLength, "leave segments shorter than this alone, in mm")
	f.BoolVar(&of.opts.ArcsCarryExtrusion, "arcs", of.opts.ArcsCarryExtrusion, "let extruding G2/G3 arcs act as corner neighbours")
	f.BoolVar(&of.opts.FollowExtrusionModeSwitches, "follow-mode-switches", of.opts.FollowExtrusionModeSwitches, "apply M82/M83 where they appear instead of file-wide")
	return of
}

// resolve returns the config file options overridden by changed flags.
func (of *optionFlags) resolve(cmd *cobra.Command) (corrector.Options, error) {
	base := corrector.DefaultOptions()
	if of.configPath != "" {
		var err error
		if base, err = config.LoadCorrectorOptions(of.configPath); err != nil {
			return base, err
		}
	}

	set := func(name string, dst *float64, v float64) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	setBool("start", &base.StartEnabled, of.opts.StartEnabled)
	setBool("end", &base.EndEnabled, of.opts.EndEnabled)
	set("start-length", &base.StartLength, of.opts.StartLength)
	set("end-length", &base.EndLength, of.opts.EndLength)
	set("start-flow-ratio", &base.StartFlowRatio, of.opts.StartFlowRatio)
	set("end-flow-ratio", &base.EndFlowRatio, of.opts.EndFlowRatio)
	set("min-segment-length", &base.MinSegmentLength, of.opts.MinSegmentLength)
	setBool("arcs", &base.ArcsCarryExtrusion, of.opts.ArcsCarryExtrusion)
	setBool("follow-mode-switches", &base.FollowExtrusionModeSwitches, of.opts.FollowExtrusionModeSwitches)

	return base, base.Validate()
}

// changedFlags lists the option flags given on the command line.
func changedFlags(cmd *cobra.Command) []string {
	var names []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		names = append(names, f.Name)
	})
	return names
}
