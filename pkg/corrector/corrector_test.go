// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/gcode"
)

func exampleOptions() Options {
	return Options{
		StartEnabled:   true,
		EndEnabled:     true,
		StartLength:    1,
		EndLength:      1,
		StartFlowRatio: 0.5,
		EndFlowRatio:   0.5,
	}
}

func run(t *testing.T, opts Options, lines []string) *Result {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	res, err := c.Run(context.Background(), lines, nil)
	require.NoError(t, err)
	return res
}

// square is a closed 10mm perimeter printed with absolute extrusion.
var square = []string{
	"; layer 1",
	"G90",
	"M82",
	"G1 Z0.2 F600",
	"G0 X0 Y0",
	"G92 E0",
	"G1 F1800 X10 Y0 E0.4 ; wall",
	"G1 X10 Y10 E0.8",
	"G1 X0 Y10 E1.2",
	"G1 X0 Y0 E1.6",
	"G1 E1.0",
	"G0 X5 Y5",
	"G1 X15 Y5 E1.4",
}

func TestWorkedExample(t *testing.T) {
	res := run(t, exampleOptions(), []string{
		"G1 X0 Y0 E1",
		"G1 X10 Y0 E2",
		"G1 X10 Y10 E3",
	})

	assert.Equal(t, []string{
		"G1 X0 Y0 E1",
		"G1 X1.00000 E1.1000000",
		"G1 X9.00000 E1.9000000",
		"G1 X10.00000 E1.9500000",
		"G92 E2.0000000",
		"G1 Y1.00000 E2.0500000",
		"G92 E2.1000000",
		"G1 Y9.00000 E2.9000000",
		"G1 Y10.00000 E3.0000000",
	}, res.Lines)

	seg := res.Program.Lines[1]
	var moves []gcode.Line
	for _, l := range seg.Expansion {
		if l.Synthetic == gcode.SyntheticMove {
			moves = append(moves, l)
		}
	}
	require.Len(t, moves, 3)

	var total float64
	pos := seg.Start
	for _, m := range moves {
		assert.True(t, m.Start.XY() == pos.XY(), "pieces must be contiguous")
		assert.InDelta(t, 0, m.Start.Y, 1e-12)
		assert.InDelta(t, 0, m.End.Y, 1e-12)
		total += m.DeltaE()
		pos = m.End
	}
	assert.Equal(t, seg.End.XY(), pos.XY())
	assert.LessOrEqual(t, total, seg.DeltaE())
	assert.InDelta(t, 0.95, total, 1e-12)

	assert.Equal(t, OutcomeTrimTooLong, res.Decisions[0].Outcome)
	assert.Equal(t, OutcomeCorrected, res.Decisions[1].Outcome)
	assert.Equal(t, 2, res.Stats.Corrected)
	assert.Equal(t, 3, res.Stats.Extruding)
}

func TestWorkedExampleMinimumLength(t *testing.T) {
	opts := exampleOptions()
	opts.MinSegmentLength = 20
	in := []string{"G1 X0 Y0 E1", "G1 X10 Y0 E2", "G1 X10 Y10 E3"}
	res := run(t, opts, in)
	assert.Equal(t, in, res.Lines)
	assert.Equal(t, OutcomeTooShort, res.Decisions[1].Outcome)
	assert.Equal(t, 0, res.Stats.Corrected)
	assert.Equal(t, 3, res.Stats.Skipped[OutcomeTooShort])
}

func TestDisabledIsIdentity(t *testing.T) {
	opts := exampleOptions()
	opts.StartEnabled = false
	opts.EndEnabled = false

	in := append([]string{"G1 X0 Y0 E0.5\r", "", "  ; indented", "G1 X1.2.3 E5"}, square...)
	res := run(t, opts, in)
	assert.Equal(t, in, res.Lines)
	assert.Zero(t, res.Stats.Corrected)
	assert.Positive(t, res.Stats.Skipped[OutcomeDisabled])
}

func TestLengthThreshold(t *testing.T) {
	opts := exampleOptions()
	lines := func(y string) []string {
		return []string{"G1 X10 Y0 E1", "G1 X10 Y" + y + " E2", "G1 X0 Y" + y + " E3"}
	}

	res := run(t, opts, lines("2"))
	assert.Equal(t, OutcomeTrimTooLong, res.Decisions[1].Outcome)
	assert.False(t, res.Program.Lines[1].Corrected())

	res = run(t, opts, lines("2.001"))
	assert.Equal(t, OutcomeCorrected, res.Decisions[1].Outcome)
}

func TestPassthroughOpaqueLinesKeepPosition(t *testing.T) {
	res := run(t, DefaultOptions(), square)

	// Every opaque input line appears, in order, between the outputs of
	// its neighbours.
	k := 0
	for _, ln := range res.Program.Lines {
		n := 1
		if ln.Corrected() {
			n = len(ln.Expansion)
		}
		if ln.Class.Kind == gcode.KindOpaque {
			require.Equal(t, 1, n)
			assert.Equal(t, ln.Raw+ln.EOL, res.Lines[k])
		}
		k += n
	}
	assert.Equal(t, len(res.Lines), k)
}

// checkExpansions replays the output and checks that every input line
// ends where it did before correction and that expansions never add or
// reverse extrusion.
func checkExpansions(t *testing.T, opts Options, res *Result) {
	t.Helper()
	out := gcode.Replay(res.Lines, opts.TrackOptions())
	require.Len(t, out.Lines, len(res.Lines))

	k := 0
	for _, ln := range res.Program.Lines {
		n := 1
		if ln.Corrected() {
			n = len(ln.Expansion)
		}
		last := out.Lines[k+n-1]
		assert.InDelta(t, ln.End.X, last.End.X, 1e-5, "line %d", ln.Index)
		assert.InDelta(t, ln.End.Y, last.End.Y, 1e-5, "line %d", ln.Index)
		assert.InDelta(t, ln.End.Z, last.End.Z, 1e-5, "line %d", ln.Index)
		if !ln.RelativeExtrusion {
			assert.InDelta(t, ln.End.E, last.End.E, 1e-6, "line %d", ln.Index)
		}

		if ln.Corrected() {
			var total float64
			for j := k; j < k+n; j++ {
				o := out.Lines[j]
				if o.Class.Kind != gcode.KindMotion {
					continue
				}
				assert.GreaterOrEqual(t, o.DeltaE(), -1e-9, "output line %d", j)
				total += o.DeltaE()
			}
			assert.LessOrEqual(t, total, ln.DeltaE()+1e-6, "line %d", ln.Index)
		}
		k += n
	}
}

func TestAbsoluteExtrusionAnchoring(t *testing.T) {
	opts := DefaultOptions()
	res := run(t, opts, square)
	require.Positive(t, res.Stats.Corrected)
	checkExpansions(t, opts, res)

	// The first wall starts after a travel move, so only its end is
	// reduced; the second meets corners at both ends.
	first := res.Program.Lines[6]
	require.True(t, first.Corrected())
	assert.Equal(t, gcode.SyntheticMove, first.Expansion[0].Synthetic)
	assert.Equal(t, "1800", first.Expansion[0].Feed)
	assert.Equal(t, "; wall", first.Expansion[0].Comment)
	assert.Empty(t, first.Expansion[1].Feed)
	assert.Len(t, first.Expansion, 4)
	assert.Equal(t, gcode.SyntheticReset, first.Expansion[3].Synthetic)

	second := res.Program.Lines[7]
	assert.Len(t, second.Expansion, 5)

	// The retraction and the isolated line after travel are left alone.
	assert.Equal(t, OutcomeNotExtruding, res.Decisions[10].Outcome)
	assert.Equal(t, OutcomeNoCorner, res.Decisions[12].Outcome)
}

func TestRelativeExtrusion(t *testing.T) {
	opts := DefaultOptions()
	in := []string{
		"M83",
		"G1 X10 Y0 E0.4",
		"G1 X10 Y10 E0.4",
		"G1 X0 Y10 E0.4",
	}
	res := run(t, opts, in)
	checkExpansions(t, opts, res)

	mid := res.Program.Lines[2]
	require.True(t, mid.Corrected())
	require.Len(t, mid.Expansion, 3)
	var total float64
	for _, l := range mid.Expansion {
		assert.Equal(t, gcode.SyntheticMove, l.Synthetic, "no G92 with relative extrusion")
		assert.Zero(t, l.Start.E)
		total += l.End.E
	}
	assert.InDelta(t, 0.4-0.01-0.01, total, 1e-12)
	assert.Equal(t, "G1 Y0.50000 E0.0100000", mid.Expansion[0].Text())
}

func TestRelativePositioning(t *testing.T) {
	opts := DefaultOptions()
	in := []string{
		"G1 X10 Y10 E1",
		"G91",
		"G1 X10 E0.4",
		"G1 Y10 E0.4",
		"G1 X-10 E0.4",
		"G90",
	}
	res := run(t, opts, in)
	checkExpansions(t, opts, res)

	mid := res.Program.Lines[3]
	require.True(t, mid.Corrected())
	require.Len(t, mid.Expansion, 5)

	// E words are deltas under G91 but the counter is still re-anchored
	// for the absolute moves that follow G90.
	assert.Equal(t, "G1 Y0.50000 E0.0100000", mid.Expansion[0].Text())
	assert.Equal(t, "G92 E1.4200000", mid.Expansion[1].Text())
	assert.Equal(t, "G1 Y9.00000 E0.3600000", mid.Expansion[2].Text())
	assert.Equal(t, "G92 E1.8000000", mid.Expansion[4].Text())
}

func TestRelativePositioningDoesNotDrift(t *testing.T) {
	opts := DefaultOptions()
	in := []string{"G91", "M83"}
	for i := 0; i < 2000; i++ {
		if i%2 == 0 {
			in = append(in, "G1 X3.333333 E0.1")
		} else {
			in = append(in, "G1 Y3.333333 E0.1")
		}
	}
	res := run(t, opts, in)
	require.Positive(t, res.Stats.Corrected)
	checkExpansions(t, opts, res)

	want := res.Program.Lines[len(res.Program.Lines)-1].End
	assert.InDelta(t, 3333.333, want.X, 1e-6)

	out := gcode.Replay(res.Lines, opts.TrackOptions())
	got := out.Lines[len(out.Lines)-1].End
	assert.InDelta(t, want.X, got.X, 1e-7)
	assert.InDelta(t, want.Y, got.Y, 1e-7)
}

func TestFollowExtrusionModeSwitches(t *testing.T) {
	opts := DefaultOptions()
	opts.FollowExtrusionModeSwitches = true
	in := []string{
		"G1 X10 Y0 E1",
		"G1 X10 Y10 E2",
		"G1 X0 Y10 E3",
		"M83",
		"G1 X0 Y0 E0.5",
		"G1 X10 Y0 E0.5",
		"G1 X10 Y10 E0.5",
	}
	res := run(t, opts, in)
	checkExpansions(t, opts, res)
	assert.Len(t, res.Program.Lines[1].Expansion, 5)
	assert.Len(t, res.Program.Lines[5].Expansion, 3)
}

func TestArcsCarryExtrusion(t *testing.T) {
	in := []string{
		"G1 X10 Y0 E1",
		"G3 X20 Y0 I5 J0 E2",
		"G1 X30 Y0 E3",
	}

	opts := DefaultOptions()
	res := run(t, opts, in)
	assert.Equal(t, OutcomeNoCorner, res.Decisions[0].Outcome)
	assert.Equal(t, OutcomeNotExtruding, res.Decisions[1].Outcome)
	assert.Equal(t, OutcomeNoCorner, res.Decisions[2].Outcome)
	assert.Equal(t, in, res.Lines)

	opts.ArcsCarryExtrusion = true
	res = run(t, opts, in)
	assert.Equal(t, OutcomeCorrected, res.Decisions[0].Outcome)
	assert.Equal(t, OutcomeArc, res.Decisions[1].Outcome)
	assert.Equal(t, OutcomeCorrected, res.Decisions[2].Outcome)
	assert.InDelta(t, 90, res.Decisions[2].Start.Angle, 1e-9)
	assert.Equal(t, in[1], res.Lines[4], "arcs are never split")
	checkExpansions(t, opts, res)
}

func TestStraightContinuationIsNoCorner(t *testing.T) {
	res := run(t, DefaultOptions(), []string{
		"G1 X10 Y0 E1",
		"G1 X20 Y0 E2",
		"G1 X30 Y0 E3",
	})
	for i, d := range res.Decisions {
		assert.Equal(t, OutcomeNoCorner, d.Outcome, "line %d", i)
	}
}

func TestSingleSide(t *testing.T) {
	opts := exampleOptions()
	opts.StartEnabled = false
	res := run(t, opts, []string{
		"G1 X10 Y0 E1",
		"G1 X10 Y10 E2",
		"G1 X0 Y10 E3",
	})
	mid := res.Program.Lines[1]
	require.True(t, mid.Corrected())
	require.Len(t, mid.Expansion, 3)
	assert.Equal(t, "G1 Y9.00000 E1.9000000", mid.Expansion[0].Text())
	assert.Equal(t, "G1 Y10.00000 E1.9500000", mid.Expansion[1].Text())
	assert.Equal(t, "G92 E2.0000000", mid.Expansion[2].Text())
	assert.False(t, res.Decisions[1].Start.Enabled)
}

func TestFlowAnomaly(t *testing.T) {
	opts := exampleOptions()
	opts.StartFlowRatio = 1.5
	opts.EndFlowRatio = 1.5
	in := []string{"G1 X10 Y0 E1", "G1 X10 Y10 E2", "G1 X0 Y10 E3"}
	res := run(t, opts, in)
	assert.Equal(t, OutcomeFlowAnomaly, res.Decisions[1].Outcome)
	assert.Equal(t, in, res.Lines)

	err := res.Decisions[1].Err
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeometry))
	assert.Equal(t, 2, err.Line)
}

func TestZeroRatioDropsExtrusionAtRightAngle(t *testing.T) {
	opts := exampleOptions()
	opts.StartFlowRatio = 0
	opts.EndFlowRatio = 0
	res := run(t, opts, []string{"G1 X10 Y0 E1", "G1 X10 Y10 E2", "G1 X0 Y10 E3"})
	mid := res.Program.Lines[1]
	require.True(t, mid.Corrected())
	assert.Equal(t, "G1 Y1.00000", mid.Expansion[0].Text())
	assert.Equal(t, "G92 E1.1000000", mid.Expansion[1].Text())
	assert.InDelta(t, 0.2, res.Decisions[1].Removed(), 1e-12)
}

func TestParseFailureIsPassthrough(t *testing.T) {
	in := []string{"G1 X10 Y0 E1", "G1 X10 Y1.0.0 E2", "G1 X0 Y10 E3"}
	res := run(t, exampleOptions(), in)
	assert.Equal(t, OutcomeParseFailed, res.Decisions[1].Outcome)
	assert.Equal(t, in[1], res.Lines[1])
	assert.Equal(t, 1, res.Stats.Skipped[OutcomeParseFailed])

	err := res.Decisions[1].Err
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errors.ErrGCodeInvalidParam))
	assert.Equal(t, "[GCODE_INVALID_PARAM:line 2] G-code command 'G1': invalid parameter 'Y=1.0.0' (not a number)", err.Error())
	assert.Nil(t, res.Decisions[0].Err)
}

func TestCRLFExpansion(t *testing.T) {
	res := run(t, exampleOptions(), []string{"G1 X10 Y0 E1\r", "G1 X10 Y10 E2\r", "G1 X0 Y10 E3\r"})
	for _, l := range res.Lines {
		assert.True(t, len(l) > 0 && l[len(l)-1] == '\r', "%q", l)
	}
}

func TestProgress(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	lines := make([]string, 0, 1000)
	for i := 0; i < 250; i++ {
		lines = append(lines, square[6:10]...)
	}
	var seen []int
	_, err = c.Run(context.Background(), lines, func(p int) { seen = append(seen, p) })
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, 100, seen[len(seen)-1])
	assert.Len(t, seen, 101)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}

	seen = nil
	_, err = c.Run(context.Background(), nil, func(p int) { seen = append(seen, p) })
	require.NoError(t, err)
	assert.Equal(t, []int{100}, seen)
}

func TestRunCanceled(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx, square, nil)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrRunCanceled))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.StartLength = 0
	_, err := New(opts)
	assert.True(t, errors.Is(err, errors.ErrConfigValidation))
}

func TestCornerAngleAndFlowFactor(t *testing.T) {
	assert.InDelta(t, 90, CornerAngle(vec(1, 0), vec(0, 1)), 1e-9)
	assert.InDelta(t, 90, CornerAngle(vec(1, 0), vec(0, -1)), 1e-9)
	assert.InDelta(t, 45, CornerAngle(vec(1, 0), vec(1, 1)), 1e-9)
	assert.InDelta(t, 135, CornerAngle(vec(1, 0), vec(1, -1)), 1e-9)
	assert.InDelta(t, 0, CornerAngle(vec(1, 0), vec(2, 0)), 1e-9)

	assert.InDelta(t, 1, FlowFactor(0.5, 0), 1e-12)
	assert.InDelta(t, 0.5, FlowFactor(0.5, 90), 1e-12)
	assert.InDelta(t, 1-0.5*math.Sqrt2/2, FlowFactor(0.5, 45), 1e-12)
	assert.InDelta(t, 1, FlowFactor(0.5, 180), 1e-12)
}

func vec(x, y float64) r2.Vec {
	return r2.Vec{X: x, Y: y}
}

func TestStatsSkippedByName(t *testing.T) {
	s := Stats{Skipped: map[Outcome]int{OutcomeTooShort: 2, OutcomeNoCorner: 1}}
	assert.Equal(t, map[string]int{"too_short": 2, "no_corner": 1}, s.SkippedByName())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "corrected", OutcomeCorrected.String())
	assert.Equal(t, "unknown", Outcome(99).String())
	assert.Len(t, Outcomes(), int(OutcomeCorrected)+1)
}
