// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package gcode classifies, replays and re-emits G-code command streams.
//
// A stream is replayed once into a Program: every input line becomes a Line
// carrying its resolved start and end MachineState, the positioning and
// extrusion modes in force, and links to the neighbouring command lines.
// Lines may later be given an Expansion, which the emitter writes in place
// of the original text.
package gcode

import (
	"strconv"
	"strings"
)

// Kind is the coarse category of a line.
type Kind int

const (
	// KindOpaque covers comments, blank lines and every command the
	// replay does not interpret.
	KindOpaque Kind = iota

	// KindPositioningMode is G90 (absolute) or G91 (relative).
	KindPositioningMode

	// KindExtrusionMode is M82 (absolute) or M83 (relative).
	KindExtrusionMode

	// KindCoordinateReset is G92.
	KindCoordinateReset

	// KindMotion is G0, G1, G2 or G3.
	KindMotion
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindPositioningMode:
		return "positioning"
	case KindExtrusionMode:
		return "extrusion"
	case KindCoordinateReset:
		return "reset"
	case KindMotion:
		return "motion"
	default:
		return "unknown"
	}
}

// Motion identifies the motion command of a KindMotion line.
type Motion int

const (
	MotionNone Motion = iota
	MotionRapid
	MotionLinear
	MotionArcCW
	MotionArcCCW
)

// String returns the G-code word for the motion.
func (m Motion) String() string {
	switch m {
	case MotionRapid:
		return "G0"
	case MotionLinear:
		return "G1"
	case MotionArcCW:
		return "G2"
	case MotionArcCCW:
		return "G3"
	default:
		return ""
	}
}

// IsArc reports whether m is G2 or G3.
func (m Motion) IsArc() bool {
	return m == MotionArcCW || m == MotionArcCCW
}

// Classification is the result of Classify.
type Classification struct {
	Kind Kind

	// Command is the normalised command word ("G1", "M106"), empty when
	// the line carries no G or M command.
	Command string

	// Absolute is set for G90.
	Absolute bool

	// Relative is set for M83.
	Relative bool

	Motion Motion
}

// IsCommand reports whether the line starts with a G or M command word.
func (c Classification) IsCommand() bool {
	return c.Command != ""
}

// String returns a compact description for diagnostics.
func (c Classification) String() string {
	switch c.Kind {
	case KindPositioningMode:
		if c.Absolute {
			return "positioning(absolute)"
		}
		return "positioning(relative)"
	case KindExtrusionMode:
		if c.Relative {
			return "extrusion(relative)"
		}
		return "extrusion(absolute)"
	case KindMotion:
		return "motion(" + c.Motion.String() + ")"
	case KindOpaque:
		if c.Command != "" {
			return "opaque(" + c.Command + ")"
		}
	}
	return c.Kind.String()
}

// Classify categorises one line of G-code text. Only the first word is
// inspected (after an optional "N<digits>" line number); it must be a G or M
// letter followed by digits. Zero padded numbers ("G01") are accepted and
// the letter is case-insensitive.
func Classify(text string) Classification {
	cmd, _ := splitCommand(text)
	if cmd == "" {
		return Classification{Kind: KindOpaque}
	}
	c := Classification{Kind: KindOpaque, Command: cmd}
	switch cmd {
	case "G0":
		c.Kind, c.Motion = KindMotion, MotionRapid
	case "G1":
		c.Kind, c.Motion = KindMotion, MotionLinear
	case "G2":
		c.Kind, c.Motion = KindMotion, MotionArcCW
	case "G3":
		c.Kind, c.Motion = KindMotion, MotionArcCCW
	case "G90":
		c.Kind, c.Absolute = KindPositioningMode, true
	case "G91":
		c.Kind = KindPositioningMode
	case "M82":
		c.Kind = KindExtrusionMode
	case "M83":
		c.Kind, c.Relative = KindExtrusionMode, true
	case "G92":
		c.Kind = KindCoordinateReset
	}
	return c
}

// splitCommand extracts and normalises the leading G/M word of text and
// returns the remainder holding the parameters.
func splitCommand(text string) (cmd, rest string) {
	ln := strings.TrimLeft(text, " \t")
	if len(ln) > 1 && ln[0]&^0x20 == 'N' {
		end := 1
		for end < len(ln) && isDigit(ln[end]) {
			end++
		}
		if end > 1 {
			ln = strings.TrimLeft(ln[end:], " \t")
		}
	}
	if len(ln) < 2 {
		return "", ""
	}
	letter := ln[0] &^ 0x20
	if letter != 'G' && letter != 'M' {
		return "", ""
	}
	end := 1
	for end < len(ln) && isDigit(ln[end]) {
		end++
	}
	if end == 1 {
		return "", ""
	}
	n, err := strconv.Atoi(ln[1:end])
	if err != nil {
		return "", ""
	}
	cmd = string(letter) + strconv.Itoa(n)
	// Sub-codes such as "G29.1" never match a known command.
	if end < len(ln) && ln[end] == '.' {
		sub := end + 1
		for sub < len(ln) && isDigit(ln[sub]) {
			sub++
		}
		cmd += ln[end:sub]
		end = sub
	}
	if end < len(ln) && !isWordBoundary(ln[end]) && !isParamLetter(ln[end]) {
		return "", ""
	}
	return cmd, ln[end:]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isWordBoundary(b byte) bool {
	switch b {
	case ' ', '\t', ';', '\r', '\n', '(', '*':
		return true
	}
	return false
}

func isParamLetter(b byte) bool {
	b &^= 0x20
	return b >= 'A' && b <= 'Z'
}
