// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/gcode"
)

// cornerTolerance is how close to 0 or 180 degrees a turn may be and
// still count as no corner.
const cornerTolerance = 1e-3

// Side is the evaluation of one end of a segment.
type Side struct {
	Enabled bool

	// Angle is the turn against the neighbour in degrees, [0,180].
	Angle float64

	// Qualifies is set when the neighbour extrudes, has a direction and
	// meets the segment at a real corner.
	Qualifies bool

	// Factor is the flow multiplier applied to this side's share.
	Factor float64

	RawE    float64
	ScaledE float64
}

// Decision is the corrector's verdict on one line.
type Decision struct {
	Outcome Outcome
	Length  float64
	Start   Side
	End     Side
	MainE   float64

	// Err explains a parse failure or a flow anomaly.
	Err *errors.HostError
}

// Removed returns the extrusion taken out of the segment.
func (d Decision) Removed() float64 {
	if d.Outcome != OutcomeCorrected {
		return 0
	}
	return (d.Start.RawE - d.Start.ScaledE) + (d.End.RawE - d.End.ScaledE)
}

// FlowFactor returns the multiplier for a side with the given flow ratio
// at a turn of angle degrees: 1 for a straight continuation, ratio at a
// right angle.
func FlowFactor(ratio, angle float64) float64 {
	return 1 - (1-ratio)*math.Sin(angle*math.Pi/180)
}

// CornerAngle returns the turn between directions d and n in degrees,
// folded into [0,180].
func CornerAngle(d, n r2.Vec) float64 {
	a := math.Atan2(r2.Cross(d, n), r2.Dot(d, n)) * 180 / math.Pi
	if a < 0 {
		a += 180
	}
	if a > 180 {
		a -= 180
	}
	return a
}

// evaluate decides what to do with prog.Lines[i] and, when the line is
// corrected, fills its Expansion.
func evaluate(prog *gcode.Program, i int, opts Options) Decision {
	ln := &prog.Lines[i]
	switch {
	case !ln.IsCommand:
		return Decision{Outcome: OutcomeNotCommand}
	case ln.ParseFailed:
		return Decision{Outcome: OutcomeParseFailed, Err: errors.WithLineNumber(ln.ParseErr, ln.Index+1)}
	case !ln.HasExtrusion || ln.ZChanged():
		return Decision{Outcome: OutcomeNotExtruding}
	case ln.Class.Motion != gcode.MotionLinear:
		return Decision{Outcome: OutcomeArc}
	case !opts.Enabled():
		return Decision{Outcome: OutcomeDisabled}
	}

	d := Decision{Length: ln.Length()}
	if !(d.Length >= opts.MinSegmentLength) {
		d.Outcome = OutcomeTooShort
		return d
	}
	if !(d.Length > opts.TrimLength()) {
		d.Outcome = OutcomeTrimTooLong
		return d
	}

	dir := ln.Planar()
	d.Start = side(prog, ln.Prev, true, dir, opts.StartEnabled, opts.StartFlowRatio)
	d.End = side(prog, ln.Next, false, dir, opts.EndEnabled, opts.EndFlowRatio)
	if !(d.Start.Enabled && d.Start.Qualifies) && !(d.End.Enabled && d.End.Qualifies) {
		d.Outcome = OutcomeNoCorner
		return d
	}

	var startPortion, endPortion float64
	if opts.StartEnabled {
		startPortion = opts.StartLength / d.Length
	}
	if opts.EndEnabled {
		endPortion = opts.EndLength / d.Length
	}

	de := ln.DeltaE()
	d.Start.RawE = de * startPortion
	d.End.RawE = de * endPortion
	d.MainE = de - d.Start.RawE - d.End.RawE
	d.Start.ScaledE = d.Start.RawE * d.Start.Factor
	d.End.ScaledE = d.End.RawE * d.End.Factor

	if !flowSound(d) {
		d.Outcome = OutcomeFlowAnomaly
		d.Err = errors.WithLineNumber(errors.GeometryError(fmt.Sprintf(
			"extrusion shares out of range: start %g of %g, main %g, end %g of %g",
			d.Start.ScaledE, d.Start.RawE, d.MainE, d.End.ScaledE, d.End.RawE)), ln.Index+1)
		return d
	}

	ln.Expansion = split(ln, opts, startPortion, endPortion, d)
	d.Outcome = OutcomeCorrected
	return d
}

// side evaluates the neighbour at idx. For the previous line the
// direction at its end is used, for the next line the one at its start.
func side(prog *gcode.Program, idx int, prev bool, dir r2.Vec, enabled bool, ratio float64) Side {
	s := Side{Enabled: enabled, Factor: 1}
	if idx == gcode.NoLine {
		return s
	}
	n := &prog.Lines[idx]
	if !n.HasExtrusion || n.DeltaE() <= 0 {
		return s
	}
	nd, ok := n.Direction(prev)
	if !ok {
		return s
	}
	s.Angle = CornerAngle(dir, nd)
	s.Qualifies = s.Angle > cornerTolerance && s.Angle < 180-cornerTolerance
	if enabled && s.Qualifies {
		s.Factor = FlowFactor(ratio, s.Angle)
	}
	return s
}

// flowSound rejects negative, undefined or increased shares.
func flowSound(d Decision) bool {
	for _, v := range []float64{d.Start.RawE, d.End.RawE, d.MainE, d.Start.ScaledE, d.End.ScaledE, d.Start.Factor, d.End.Factor} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return d.Start.ScaledE <= d.Start.RawE && d.End.ScaledE <= d.End.RawE
}

// split builds the replacement lines: start piece, main piece and end
// piece. Unless extrusion is per-move relative, a reduced piece is
// followed by a G92 putting the counter back on the unscaled total.
func split(ln *gcode.Line, opts Options, startPortion, endPortion float64, d Decision) []gcode.Line {
	b := &expansion{
		src:    ln,
		e:      ln.Start.E,
		anchor: !ln.RelativeExtrusion,
		out:    make([]gcode.Line, 0, 5),
	}
	if opts.StartEnabled {
		b.move(0, startPortion, d.Start.ScaledE)
		if d.Start.ScaledE != d.Start.RawE {
			b.reset(ln.Start.E + d.Start.RawE)
		}
	}
	b.move(startPortion, 1-endPortion, d.MainE)
	if opts.EndEnabled {
		b.move(1-endPortion, 1, d.End.ScaledE)
		if d.End.ScaledE != d.End.RawE {
			b.reset(ln.End.E)
		}
	}
	return b.out
}

type expansion struct {
	src    *gcode.Line
	e      float64
	anchor bool
	out    []gcode.Line
}

// at returns the position a fraction t along the source segment. Under
// relative positioning interior points are snapped to the printed
// precision, so the emitted deltas sum to the source move.
func (b *expansion) at(t float64) gcode.MachineState {
	switch t {
	case 0:
		return b.src.Start
	case 1:
		return b.src.End
	}
	p := b.src.Start.Lerp(b.src.End, t)
	if !b.src.AbsolutePositioning {
		s := b.src.Start
		p.X = s.X + gcode.RoundCoord(p.X-s.X)
		p.Y = s.Y + gcode.RoundCoord(p.Y-s.Y)
		p.Z = s.Z + gcode.RoundCoord(p.Z-s.Z)
	}
	return p
}

func (b *expansion) move(t0, t1, share float64) {
	start, end := b.at(t0), b.at(t1)
	if b.src.RelativeExtrusion {
		start.E, end.E = 0, share
	} else {
		start.E, end.E = b.e, b.e+share
		b.e = end.E
	}
	ln := b.synthetic(gcode.SyntheticMove, start, end)
	ln.Class = gcode.Classification{Kind: gcode.KindMotion, Command: "G1", Motion: gcode.MotionLinear}
	ln.HasExtrusion = share > 0
	if len(b.out) == 0 {
		ln.Feed = b.src.Feed
		ln.Comment = b.src.Comment
	}
	b.out = append(b.out, ln)
}

// reset appends a G92 setting the counter to e. It is a no-op when the
// counter is reset after every move anyway.
func (b *expansion) reset(e float64) {
	if !b.anchor {
		return
	}
	pos := b.src.End
	if n := len(b.out); n > 0 {
		pos = b.out[n-1].End
	}
	end := pos
	end.E = e
	ln := b.synthetic(gcode.SyntheticReset, pos, end)
	ln.Class = gcode.Classification{Kind: gcode.KindCoordinateReset, Command: "G92"}
	b.out = append(b.out, ln)
	b.e = e
}

func (b *expansion) synthetic(kind gcode.Synthetic, start, end gcode.MachineState) gcode.Line {
	return gcode.Line{
		Index:               b.src.Index,
		EOL:                 b.src.EOL,
		IsCommand:           true,
		Start:               start,
		End:                 end,
		AbsolutePositioning: b.src.AbsolutePositioning,
		RelativeExtrusion:   b.src.RelativeExtrusion,
		Prev:                gcode.NoLine,
		Next:                gcode.NoLine,
		Synthetic:           kind,
	}
}
