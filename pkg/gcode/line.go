// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"gcode-corrector/pkg/errors"
)

// NoLine marks an absent neighbour.
const NoLine = -1

// Synthetic identifies lines built by a rewrite rather than read from input.
type Synthetic int

const (
	NotSynthetic Synthetic = iota
	SyntheticMove
	SyntheticReset
)

// Line is one record of a replayed stream.
type Line struct {
	// Index is the ordinal of the source line. Expansion lines share the
	// index of the line they replace.
	Index int

	// Raw is the text without its line terminator.
	Raw string

	// EOL is "\r" for lines taken from a CRLF stream, "" otherwise.
	EOL string

	Class Classification

	IsCommand    bool
	HasExtrusion bool

	// ParseFailed is set when a coordinate word could not be read. The
	// line is passed through and never corrected.
	ParseFailed bool
	ParseErr    *errors.HostError

	Start MachineState
	End   MachineState

	// AbsolutePositioning and RelativeExtrusion are the modes in force
	// when the line executed.
	AbsolutePositioning bool
	RelativeExtrusion   bool

	// Prev and Next index the adjacent command lines of the owning
	// Program, or NoLine.
	Prev int
	Next int

	Params Params

	// ArcCenter is the absolute centre of a G2/G3 move given with I/J.
	ArcCenter    r2.Vec
	HasArcCenter bool

	Synthetic Synthetic

	// Feed is a feedrate word to carry on a synthetic move ("1800").
	Feed string

	// Comment is a trailing comment to carry on a synthetic move.
	Comment string

	// Expansion replaces the line on output when non-empty.
	Expansion []Line
}

// Delta returns End minus Start on every axis.
func (l *Line) Delta() MachineState {
	return MachineState{
		X: l.End.X - l.Start.X,
		Y: l.End.Y - l.Start.Y,
		Z: l.End.Z - l.Start.Z,
		E: l.End.E - l.Start.E,
	}
}

// DeltaE returns the extrusion of the line.
func (l *Line) DeltaE() float64 {
	return l.End.E - l.Start.E
}

// Planar returns the XY displacement of the line.
func (l *Line) Planar() r2.Vec {
	return Displacement(l.Start, l.End)
}

// Length returns the planar length of the line.
func (l *Line) Length() float64 {
	return r2.Norm(l.Planar())
}

// ZChanged reports whether the line moves the Z axis.
func (l *Line) ZChanged() bool {
	return math.Abs(l.End.Z-l.Start.Z) >= Epsilon
}

// Corrected reports whether the line has been replaced.
func (l *Line) Corrected() bool {
	return len(l.Expansion) > 0
}

// Direction returns the direction of travel at the start (atEnd false) or
// end (atEnd true) of the line. Straight moves have the same direction at
// both ends; arcs use the tangent at the requested endpoint. ok is false
// when the direction is undefined.
func (l *Line) Direction(atEnd bool) (r2.Vec, bool) {
	if l.Class.Motion.IsArc() {
		if !l.HasArcCenter {
			return r2.Vec{}, false
		}
		p := l.Start.XY()
		if atEnd {
			p = l.End.XY()
		}
		radius := r2.Sub(p, l.ArcCenter)
		if r2.Norm(radius) < Epsilon {
			return r2.Vec{}, false
		}
		// Tangent is the radius rotated by -90 degrees for clockwise arcs
		// and +90 degrees for counter-clockwise ones.
		if l.Class.Motion == MotionArcCW {
			return r2.Vec{X: radius.Y, Y: -radius.X}, true
		}
		return r2.Vec{X: -radius.Y, Y: radius.X}, true
	}
	d := l.Planar()
	if r2.Norm(d) < Epsilon {
		return r2.Vec{}, false
	}
	return d, true
}
