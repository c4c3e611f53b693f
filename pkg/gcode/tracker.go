// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"gcode-corrector/pkg/errors"
)

// TrackOptions controls how a stream is replayed.
type TrackOptions struct {
	// ArcsCarryExtrusion lets extruding G2/G3 moves be flagged HasExtrusion.
	ArcsCarryExtrusion bool

	// FollowExtrusionModeSwitches applies M82/M83 where they appear. When
	// false the extrusion mode is decided once for the whole stream: any M83
	// makes every line relative. The extruder total built up under M83 is
	// carried into the counter when M82 switches back.
	FollowExtrusionModeSwitches bool
}

// Program is a replayed stream.
type Program struct {
	Lines []Line

	// Commands indexes the command lines of Lines in order.
	Commands []int

	// RelativeExtrusion is the mode found by the pre-scan.
	RelativeExtrusion bool
}

// tracker is the running machine state during a replay.
type tracker struct {
	opts TrackOptions

	absoluteCoord   bool
	relativeExtrude bool
	pos             MachineState

	// extruded is the counter value while E words are per-move deltas.
	extruded float64
}

// Replay classifies texts and resolves the machine state of every line.
// texts are lines without terminators; a trailing '\r' is moved into the
// line's EOL.
func Replay(texts []string, opts TrackOptions) *Program {
	prog := &Program{
		Lines:             make([]Line, len(texts)),
		RelativeExtrusion: scanRelativeExtrusion(texts),
	}
	t := &tracker{
		opts:            opts,
		absoluteCoord:   true,
		relativeExtrude: prog.RelativeExtrusion,
	}
	if opts.FollowExtrusionModeSwitches {
		t.relativeExtrude = false
	}

	for i, text := range texts {
		ln := &prog.Lines[i]
		ln.Index = i
		ln.Raw, ln.EOL = splitEOL(text)
		ln.Prev, ln.Next = NoLine, NoLine
		ln.Class = Classify(ln.Raw)
		ln.IsCommand = ln.Class.IsCommand()
		t.apply(ln)
		if ln.IsCommand {
			prog.Commands = append(prog.Commands, i)
		}
	}

	for k, idx := range prog.Commands {
		if k > 0 {
			prog.Lines[idx].Prev = prog.Commands[k-1]
		}
		if k+1 < len(prog.Commands) {
			prog.Lines[idx].Next = prog.Commands[k+1]
		}
	}
	return prog
}

// scanRelativeExtrusion reports whether any line switches to relative
// extrusion.
func scanRelativeExtrusion(texts []string) bool {
	for _, text := range texts {
		c := Classify(text)
		if c.Kind == KindExtrusionMode && c.Relative {
			return true
		}
	}
	return false
}

func splitEOL(text string) (string, string) {
	if strings.HasSuffix(text, "\r") {
		return text[:len(text)-1], "\r"
	}
	return text, ""
}

// apply resolves ln against the running state and advances it.
func (t *tracker) apply(ln *Line) {
	ln.Start = t.pos
	ln.AbsolutePositioning = t.absoluteCoord
	ln.RelativeExtrusion = t.relativeExtrude

	switch ln.Class.Kind {
	case KindPositioningMode:
		t.absoluteCoord = ln.Class.Absolute
	case KindExtrusionMode:
		if t.opts.FollowExtrusionModeSwitches {
			t.switchExtrusion(ln.Class.Relative)
		}
	case KindCoordinateReset:
		ln.Params = ParseParams(ln.Raw)
		t.reset(ln)
	case KindMotion:
		ln.Params = ParseParams(ln.Raw)
		t.move(ln)
	}
	ln.End = t.pos

	if t.relativeExtrude {
		// E words are per-move deltas; the next line starts from zero.
		t.pos.E = 0
	}
}

func (t *tracker) switchExtrusion(relative bool) {
	switch {
	case relative && !t.relativeExtrude:
		t.extruded = t.pos.E
	case !relative && t.relativeExtrude:
		t.pos.E = t.extruded
	}
	t.relativeExtrude = relative
}

// reset handles G92. Present axes are set, with no axes every axis is
// zeroed.
func (t *tracker) reset(ln *Line) {
	next := t.pos
	set := false
	for _, axis := range []byte{'X', 'Y', 'Z', 'E'} {
		v, ok, err := ln.Params.Float(axis)
		if err != nil {
			fail(ln, axis, err)
			return
		}
		if !ok {
			continue
		}
		set = true
		*axisRef(&next, axis) = v
	}
	if !set {
		next = MachineState{}
	}
	if t.relativeExtrude && (!set || ln.Params.Has('E')) {
		t.extruded = next.E
	}
	t.pos = next
}

// move handles G0-G3.
func (t *tracker) move(ln *Line) {
	next := t.pos
	for _, axis := range []byte{'X', 'Y', 'Z', 'E'} {
		v, ok, err := ln.Params.Float(axis)
		if err != nil {
			fail(ln, axis, err)
			return
		}
		if !ok {
			continue
		}
		absolute := t.absoluteCoord
		if axis == 'E' && t.relativeExtrude {
			absolute = false
		}
		ref := axisRef(&next, axis)
		if absolute {
			*ref = v
		} else {
			*ref += v
		}
	}
	if _, ok, err := ln.Params.Float('F'); ok {
		if err != nil {
			fail(ln, 'F', err)
			return
		}
		ln.Feed, _ = ln.Params.Raw('F')
	}
	if ln.Class.Motion.IsArc() {
		i, iok, ierr := ln.Params.Float('I')
		j, jok, jerr := ln.Params.Float('J')
		if ierr == nil && jerr == nil && (iok || jok) {
			ln.ArcCenter = r2.Add(t.pos.XY(), r2.Vec{X: i, Y: j})
			ln.HasArcCenter = true
		}
	}
	ln.Comment = ln.Params.Comment()
	if t.relativeExtrude {
		t.extruded += next.E - t.pos.E
	}
	t.pos = next

	ln.HasExtrusion = t.extrudes(ln)
}

// fail marks ln as unreadable; its state stays where it was.
func fail(ln *Line, letter byte, err error) {
	raw, _ := ln.Params.Raw(letter)
	ln.ParseFailed = true
	ln.ParseErr = errors.GCodeInvalidParameterError(ln.Class.Command, string(letter), raw, err.Error())
}

func (t *tracker) extrudes(ln *Line) bool {
	switch ln.Class.Motion {
	case MotionLinear:
	case MotionArcCW, MotionArcCCW:
		if !t.opts.ArcsCarryExtrusion {
			return false
		}
	default:
		return false
	}
	dz := t.pos.Z - ln.Start.Z
	if dz <= -Epsilon || dz >= Epsilon {
		return false
	}
	return t.pos.E-ln.Start.E > 0
}

func axisRef(s *MachineState, axis byte) *float64 {
	switch axis {
	case 'X':
		return &s.X
	case 'Y':
		return &s.Y
	case 'Z':
		return &s.Z
	default:
		return &s.E
	}
}
