// Unified error handling for the G-code corrector
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// G-code parsing errors
	ErrGCodeInvalidParam ErrorCode = "GCODE_INVALID_PARAM"

	// File errors
	ErrIORead  ErrorCode = "IO_READ"
	ErrIOWrite ErrorCode = "IO_WRITE"

	// Correction errors
	ErrGeometry    ErrorCode = "GEOMETRY"
	ErrRun         ErrorCode = "RUN"
	ErrRunCanceled ErrorCode = "RUN_CANCELED"

	// Service errors
	ErrJobNotFound ErrorCode = "JOB_NOT_FOUND"
	ErrCache       ErrorCode = "CACHE"
)

// HostError is the unified error type for the corrector
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// File is the source file (if available)
	File string

	// Line is the line number in the source file (if available)
	Line int

	// Section is the config section or context
	Section string

	// Option is the config option name (if applicable)
	Option string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	where := e.Section
	if e.Option != "" {
		where = e.Option
	}
	if e.File != "" {
		where = e.File
		if e.Line > 0 {
			where = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
	} else if e.Line > 0 {
		where = fmt.Sprintf("line %d", e.Line)
	}
	msg := fmt.Sprintf("[%s:%s] %s", e.Code, where, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetFile sets the source file
func (e *HostError) SetFile(file string) *HostError {
	e.File = file
	return e
}

// SetLine sets the line number
func (e *HostError) SetLine(line int) *HostError {
	e.Line = line
	return e
}

// SetSection sets the context section
func (e *HostError) SetSection(section string) *HostError {
	e.Section = section
	return e
}

// SetOption sets the config option
func (e *HostError) SetOption(option string) *HostError {
	e.Option = option
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Config errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *HostError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section)).
		SetSection(section)
}

// ConfigOptionError creates an error for missing or invalid config option
func ConfigOptionError(section, option string) *HostError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s' not found in section '%s'", option, section)).
		SetSection(section).
		SetOption(option)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason)).
		SetSection(section).
		SetOption(option)
}

// ConfigTypeError creates an error for config type conversion failure
func ConfigTypeError(section, option, value string, targetType string, err error) *HostError {
	return Wrap(err, ErrConfigType, fmt.Sprintf("option '%s' in section '%s': failed to parse '%s' as %s", option, section, value, targetType)).
		SetSection(section).
		SetOption(option)
}

// G-code errors

// GCodeInvalidParameterError creates an error for invalid G-code parameter
func GCodeInvalidParameterError(command, param, value string, reason string) *HostError {
	return New(ErrGCodeInvalidParam, fmt.Sprintf("G-code command '%s': invalid parameter '%s=%s' (%s)", command, param, value, reason))
}

// File errors

// ReadError creates an error for an unreadable source file
func ReadError(path string, err error) *HostError {
	return Wrap(err, ErrIORead, "cannot read source").SetFile(path)
}

// WriteError creates an error for an unwritable destination file
func WriteError(path string, err error) *HostError {
	return Wrap(err, ErrIOWrite, "cannot write destination").SetFile(path)
}

// Correction errors

// GeometryError creates an error for an inconsistent segment computation
func GeometryError(message string) *HostError {
	return New(ErrGeometry, message)
}

// RunError creates a general run error
func RunError(message string) *HostError {
	return New(ErrRun, message)
}

// CanceledError creates an error for a run stopped by its context
func CanceledError(line int, err error) *HostError {
	return Wrap(err, ErrRunCanceled, "correction canceled").SetLine(line)
}

// Service errors

// JobNotFoundError creates an error for an unknown job id
func JobNotFoundError(id string) *HostError {
	return New(ErrJobNotFound, fmt.Sprintf("job '%s' not found", id))
}

// CacheError wraps a result cache failure
func CacheError(operation string, err error) *HostError {
	return Wrap(err, ErrCache, fmt.Sprintf("cache %s failed", operation))
}

// Helper functions for adding context

// WithConfigPath adds config file path to error context
func WithConfigPath(err *HostError, path string) *HostError {
	if err == nil {
		return nil
	}
	err.SetContext("config_path", path)
	return err
}

// WithLineNumber adds line number to error context
func WithLineNumber(err *HostError, line int) *HostError {
	if err == nil {
		return nil
	}
	err.SetLine(line)
	return err
}

// FromPanic converts a recovered panic value to a run error. It returns
// nil for a nil value so it can be called as FromPanic(recover()).
func FromPanic(r interface{}) *HostError {
	if r == nil {
		return nil
	}
	switch x := r.(type) {
	case string:
		return RunError(fmt.Sprintf("panic: %s", x))
	case runtime.Error:
		return Wrap(x, ErrRun, "panic")
	case error:
		return Wrap(x, ErrRun, "panic")
	default:
		return RunError(fmt.Sprintf("panic: %v", x))
	}
}

// As finds the first HostError in err's chain
func As(err error) (*HostError, bool) {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr, true
	}
	return nil, false
}

// Is checks if any HostError in err's chain matches the given code
func Is(err error, code ErrorCode) bool {
	for err != nil {
		hostErr, ok := As(err)
		if !ok {
			return false
		}
		if hostErr.Code == code {
			return true
		}
		err = hostErr.Err
	}
	return false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsIO checks if error is a file error
func IsIO(err error) bool {
	return Is(err, ErrIORead) || Is(err, ErrIOWrite)
}
