// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

// Outcome records what the corrector did with one line.
type Outcome int

const (
	// OutcomeNotCommand is a blank, comment or unrecognised line.
	OutcomeNotCommand Outcome = iota
	// OutcomeNotExtruding is a command that does not extrude in the plane.
	OutcomeNotExtruding
	// OutcomeParseFailed is a move with an unreadable coordinate.
	OutcomeParseFailed
	// OutcomeArc is an extruding arc; arcs are never split.
	OutcomeArc
	// OutcomeDisabled means both sides are switched off.
	OutcomeDisabled
	// OutcomeTooShort is below the minimum segment length.
	OutcomeTooShort
	// OutcomeTrimTooLong means the trims do not fit inside the segment.
	OutcomeTrimTooLong
	// OutcomeNoCorner means neither configured side meets a corner.
	OutcomeNoCorner
	// OutcomeFlowAnomaly means the computed extrusion was negative,
	// undefined or larger than the original.
	OutcomeFlowAnomaly
	// OutcomeCorrected means the line was split.
	OutcomeCorrected
)

var outcomeNames = [...]string{
	OutcomeNotCommand:   "not_command",
	OutcomeNotExtruding: "not_extruding",
	OutcomeParseFailed:  "parse_failed",
	OutcomeArc:          "arc",
	OutcomeDisabled:     "disabled",
	OutcomeTooShort:     "too_short",
	OutcomeTrimTooLong:  "trim_too_long",
	OutcomeNoCorner:     "no_corner",
	OutcomeFlowAnomaly:  "flow_anomaly",
	OutcomeCorrected:    "corrected",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Outcomes lists every outcome in order.
func Outcomes() []Outcome {
	out := make([]Outcome, len(outcomeNames))
	for i := range out {
		out[i] = Outcome(i)
	}
	return out
}
