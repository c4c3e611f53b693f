// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

var zero = 0.0

// CorrectorOptions reads the [corrector] section over base. A config
// without the section yields base unchanged. Unknown options are an
// error so typos do not silently fall back to defaults.
func CorrectorOptions(cfg *Config, base corrector.Options) (corrector.Options, error) {
	sec := cfg.GetSectionOptional(corrector.Section)
	if sec == nil {
		return base, nil
	}

	opts := base
	var err error
	boolOpt := func(name string, dst *bool) {
		if err == nil {
			*dst, err = sec.GetBool(name, *dst)
		}
	}
	floatOpt := func(name string, dst *float64, bounds FloatBounds) {
		if err == nil {
			*dst, err = sec.GetFloatWithBounds(name, bounds, *dst)
		}
	}

	boolOpt("start_enabled", &opts.StartEnabled)
	boolOpt("end_enabled", &opts.EndEnabled)
	floatOpt("start_length", &opts.StartLength, FloatBounds{Above: &zero})
	floatOpt("end_length", &opts.EndLength, FloatBounds{Above: &zero})
	floatOpt("start_flow_ratio", &opts.StartFlowRatio, FloatBounds{MinVal: &zero})
	floatOpt("end_flow_ratio", &opts.EndFlowRatio, FloatBounds{MinVal: &zero})
	floatOpt("min_segment_length", &opts.MinSegmentLength, FloatBounds{MinVal: &zero})
	boolOpt("arcs_carry_extrusion", &opts.ArcsCarryExtrusion)
	boolOpt("follow_extrusion_mode_switches", &opts.FollowExtrusionModeSwitches)
	if err != nil {
		return base, err
	}

	if unused := sec.GetUnusedOptions(); len(unused) > 0 {
		return base, ErrUnknownOptions(corrector.Section, unused)
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}

// LoadCorrectorOptions loads path and reads its corrector options over
// the defaults. Option errors carry the path in their context.
func LoadCorrectorOptions(path string) (corrector.Options, error) {
	cfg, err := Load(path)
	if err != nil {
		return corrector.Options{}, err
	}
	opts, err := CorrectorOptions(cfg, corrector.DefaultOptions())
	if he, ok := errors.As(err); ok {
		return opts, errors.WithConfigPath(he, path)
	}
	return opts, err
}
