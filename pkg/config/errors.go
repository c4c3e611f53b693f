// Package config reads corrector settings from Klipper-style INI files
// or YAML, with access tracking so misspelled options are reported.
package config

import (
	"fmt"

	"gcode-corrector/pkg/errors"
)

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *errors.HostError {
	return errors.ConfigOptionError(section, option)
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *errors.HostError {
	return errors.ConfigSectionError(section)
}

// ErrInvalidValue returns an error for a value that does not parse.
func ErrInvalidValue(section, option, value, expected string, cause error) *errors.HostError {
	return errors.ConfigTypeError(section, option, value, expected, cause)
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *errors.HostError {
	return errors.ConfigValidationError(section, option, fmt.Sprintf("value %v %s", value, constraint))
}

// ErrUnknownOptions reports options nobody read.
func ErrUnknownOptions(section string, options []string) *errors.HostError {
	return errors.New(errors.ErrConfigOption, fmt.Sprintf("unknown options %v", options)).
		SetSection(section)
}

// errSyntax reports a malformed line in a config file.
func errSyntax(path string, line int, msg string) *errors.HostError {
	return errors.New(errors.ErrConfigValidation, msg).SetFile(path).SetLine(line)
}
