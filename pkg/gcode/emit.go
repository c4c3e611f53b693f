// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"
	"strconv"
	"strings"

	"gcode-corrector/pkg/pool"
)

const (
	coordDecimals   = 5
	extrudeDecimals = 7

	// Words whose delta from the line's own start is below these limits
	// are left out of synthetic moves.
	coordEmitEpsilon   = 1e-9
	extrudeEmitEpsilon = 1e-12

	// Relative coordinate words print with up to this many decimals so
	// the pieces of a split G91 move add up to the source delta.
	maxDeltaDecimals = 10
)

// Emit flattens prog to output lines, each carrying its original line
// terminator minus the '\n'.
func Emit(prog *Program) []string {
	out := make([]string, 0, len(prog.Lines))
	for i := range prog.Lines {
		ln := &prog.Lines[i]
		if !ln.Corrected() {
			out = append(out, ln.Raw+ln.EOL)
			continue
		}
		for j := range ln.Expansion {
			sub := &ln.Expansion[j]
			out = append(out, sub.Text()+sub.EOL)
		}
	}
	return out
}

// Text returns the G-code for a single line without terminator.
func (l *Line) Text() string {
	switch l.Synthetic {
	case SyntheticMove:
		return FormatMove(l)
	case SyntheticReset:
		return FormatReset(l.End.E)
	default:
		return l.Raw
	}
}

// FormatMove renders a synthetic G1 from its start and end states. X and Y
// are absolute under G90 and deltas under G91; E is a delta whenever
// extrusion is relative or positioning is relative.
func FormatMove(l *Line) string {
	b := pool.GetLine("G1")
	defer pool.PutLine(b)

	if l.Feed != "" {
		b.Word('F', l.Feed)
	}
	d := l.Delta()
	coord := coordDecimals
	if !l.AbsolutePositioning {
		coord = -1
	}
	writeAxis(b, 'X', d.X, l.End.X, l.AbsolutePositioning, coord, coordEmitEpsilon)
	writeAxis(b, 'Y', d.Y, l.End.Y, l.AbsolutePositioning, coord, coordEmitEpsilon)
	writeAxis(b, 'Z', d.Z, l.End.Z, l.AbsolutePositioning, coord, coordEmitEpsilon)
	absE := l.AbsolutePositioning && !l.RelativeExtrusion
	writeAxis(b, 'E', d.E, l.End.E, absE, extrudeDecimals, extrudeEmitEpsilon)
	b.Comment(l.Comment)
	return b.String()
}

// RoundCoord rounds v to the precision synthetic coordinates are printed
// with.
func RoundCoord(v float64) float64 {
	p := math.Pow10(coordDecimals)
	return math.Round(v*p) / p
}

// FormatReset renders a G92 that sets the extrusion counter.
func FormatReset(e float64) string {
	b := pool.GetLine("G92")
	defer pool.PutLine(b)
	b.Word('E', FormatFloat(e, extrudeDecimals))
	return b.String()
}

// writeAxis appends one axis word. A negative decimals count prints the
// value with DeltaDecimals.
func writeAxis(b *pool.LineBuilder, letter byte, delta, end float64, absolute bool, decimals int, eps float64) {
	if math.Abs(delta) < eps {
		return
	}
	v := delta
	if absolute {
		v = end
	}
	if decimals < 0 {
		decimals = DeltaDecimals(v)
	}
	b.Word(letter, FormatFloat(v, decimals))
}

// DeltaDecimals returns the fewest decimals, at least the coordinate
// precision, that print v without losing digits.
func DeltaDecimals(v float64) int {
	for d := coordDecimals; d < maxDeltaDecimals; d++ {
		p := math.Pow10(d)
		if math.Abs(math.Round(v*p)/p-v) < 1e-11 {
			return d
		}
	}
	return maxDeltaDecimals
}

// FormatFloat formats v with a fixed number of decimals and a '.' separator
// independent of locale. Values that round to zero are printed unsigned.
func FormatFloat(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.HasPrefix(s, "-") && strings.Trim(s[1:], "0.") == "" {
		return s[1:]
	}
	return s
}
