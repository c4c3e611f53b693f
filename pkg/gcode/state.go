// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the tolerance below which a coordinate change is treated as
// no change.
const Epsilon = 1e-6

// MachineState is the position of the toolhead and the extrusion counter at
// a point in the stream. In relative extrusion mode E is the delta of the
// line that produced the state, not a running total.
type MachineState struct {
	X float64
	Y float64
	Z float64
	E float64
}

// XY returns the planar position.
func (s MachineState) XY() r2.Vec {
	return r2.Vec{X: s.X, Y: s.Y}
}

// Lerp returns the state a fraction t of the way from s to o.
func (s MachineState) Lerp(o MachineState, t float64) MachineState {
	return MachineState{
		X: s.X + (o.X-s.X)*t,
		Y: s.Y + (o.Y-s.Y)*t,
		Z: s.Z + (o.Z-s.Z)*t,
		E: s.E + (o.E-s.E)*t,
	}
}

// Equal reports whether two states agree within tol on every axis.
func (s MachineState) Equal(o MachineState, tol float64) bool {
	return math.Abs(s.X-o.X) <= tol &&
		math.Abs(s.Y-o.Y) <= tol &&
		math.Abs(s.Z-o.Z) <= tol &&
		math.Abs(s.E-o.E) <= tol
}

// Displacement returns the planar movement from start to end.
func Displacement(start, end MachineState) r2.Vec {
	return r2.Sub(end.XY(), start.XY())
}
