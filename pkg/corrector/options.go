// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"math"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/gcode"
)

// Section is the config section holding corrector options.
const Section = "corrector"

// Options configures a correction run. Lengths are in millimetres; flow
// ratios are the fraction of the length-proportional extrusion kept on a
// side at a 90 degree corner.
type Options struct {
	StartEnabled bool `mapstructure:"start_enabled" yaml:"start_enabled"`
	EndEnabled   bool `mapstructure:"end_enabled" yaml:"end_enabled"`

	StartLength float64 `mapstructure:"start_length" yaml:"start_length"`
	EndLength   float64 `mapstructure:"end_length" yaml:"end_length"`

	StartFlowRatio float64 `mapstructure:"start_flow_ratio" yaml:"start_flow_ratio"`
	EndFlowRatio   float64 `mapstructure:"end_flow_ratio" yaml:"end_flow_ratio"`

	// MinSegmentLength skips segments shorter than this.
	MinSegmentLength float64 `mapstructure:"min_segment_length" yaml:"min_segment_length"`

	// ArcsCarryExtrusion lets extruding G2/G3 moves act as corner
	// neighbours. Arcs themselves are never split.
	ArcsCarryExtrusion bool `mapstructure:"arcs_carry_extrusion" yaml:"arcs_carry_extrusion"`

	// FollowExtrusionModeSwitches applies M82/M83 where they appear
	// instead of using one mode for the whole file.
	FollowExtrusionModeSwitches bool `mapstructure:"follow_extrusion_mode_switches" yaml:"follow_extrusion_mode_switches"`
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		StartEnabled:     true,
		EndEnabled:       true,
		StartLength:      0.5,
		EndLength:        0.5,
		StartFlowRatio:   0.5,
		EndFlowRatio:     0.5,
		MinSegmentLength: 1.0,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.StartEnabled {
		if err := positive("start_length", o.StartLength); err != nil {
			return err
		}
	}
	if o.EndEnabled {
		if err := positive("end_length", o.EndLength); err != nil {
			return err
		}
	}
	if err := nonNegative("start_flow_ratio", o.StartFlowRatio); err != nil {
		return err
	}
	if err := nonNegative("end_flow_ratio", o.EndFlowRatio); err != nil {
		return err
	}
	return nonNegative("min_segment_length", o.MinSegmentLength)
}

// Enabled reports whether any side is corrected.
func (o Options) Enabled() bool {
	return o.StartEnabled || o.EndEnabled
}

// TrimLength is the sum of the enabled trim lengths.
func (o Options) TrimLength() float64 {
	var l float64
	if o.StartEnabled {
		l += o.StartLength
	}
	if o.EndEnabled {
		l += o.EndLength
	}
	return l
}

// TrackOptions returns the replay settings implied by o.
func (o Options) TrackOptions() gcode.TrackOptions {
	return gcode.TrackOptions{
		ArcsCarryExtrusion:          o.ArcsCarryExtrusion,
		FollowExtrusionModeSwitches: o.FollowExtrusionModeSwitches,
	}
}

func positive(option string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errors.ConfigValidationError(Section, option, "must be above 0")
	}
	return nil
}

func nonNegative(option string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return errors.ConfigValidationError(Section, option, "must be at least 0")
	}
	return nil
}
