package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.50000", FormatFloat(1.5, 5))
	assert.Equal(t, "-0.50000", FormatFloat(-0.5, 5))
	assert.Equal(t, "0.00000", FormatFloat(-0.000001, 5))
	assert.Equal(t, "0.0000000", FormatFloat(-1e-12, 7))
	assert.Equal(t, "12.3456789", FormatFloat(12.34567891, 7))
}

func TestFormatMoveAbsolute(t *testing.T) {
	l := &Line{
		Synthetic:           SyntheticMove,
		AbsolutePositioning: true,
		Start:               MachineState{X: 0, Y: 0, Z: 0.2, E: 1},
		End:                 MachineState{X: 1, Y: 0, Z: 0.2, E: 1.05},
	}
	assert.Equal(t, "G1 X1.00000 E1.0500000", l.Text())
}

func TestFormatMoveRelativeExtrusion(t *testing.T) {
	l := &Line{
		Synthetic:           SyntheticMove,
		AbsolutePositioning: true,
		RelativeExtrusion:   true,
		Start:               MachineState{X: 2, Y: 2},
		End:                 MachineState{X: 2, Y: 4, E: 0.25},
	}
	assert.Equal(t, "G1 Y4.00000 E0.2500000", l.Text())
}

func TestFormatMoveRelativePositioning(t *testing.T) {
	l := &Line{
		Synthetic: SyntheticMove,
		Start:     MachineState{X: 10, Y: 10, E: 5},
		End:       MachineState{X: 12, Y: 9, E: 5.5},
	}
	assert.Equal(t, "G1 X2.00000 Y-1.00000 E0.5000000", l.Text())
}

func TestFormatMoveRelativeKeepsDigits(t *testing.T) {
	l := &Line{
		Synthetic: SyntheticMove,
		Start:     MachineState{X: 2.83333},
		End:       MachineState{X: 3.333333},
	}
	assert.Equal(t, "G1 X0.500003", l.Text())
}

func TestDeltaDecimals(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0.5, 5},
		{1.66667 - 0.5, 5},
		{3.333333 - 2.83333, 6},
		{1e-9, 9},
		{1.0 / 3, maxDeltaDecimals},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeltaDecimals(tt.v), "%v", tt.v)
	}
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 1.66667, RoundCoord(5.0/3))
	assert.Equal(t, -0.33333, RoundCoord(-1.0/3))
}

func TestFormatMoveFeedAndComment(t *testing.T) {
	l := &Line{
		Synthetic:           SyntheticMove,
		AbsolutePositioning: true,
		Feed:                "1800",
		Comment:             "; wall",
		End:                 MachineState{X: 1, Y: 1, E: 1},
	}
	assert.Equal(t, "G1 F1800 X1.00000 Y1.00000 E1.0000000 ; wall", l.Text())
}

func TestFormatReset(t *testing.T) {
	l := &Line{Synthetic: SyntheticReset, End: MachineState{E: 2.5}}
	assert.Equal(t, "G92 E2.5000000", l.Text())
}

func TestEmitPassthroughIsExact(t *testing.T) {
	in := []string{"; header\r", "G1 X1 Y1 E1\r", "  M104 S200 ; temp", ""}
	prog := Replay(in, TrackOptions{})
	assert.Equal(t, in, Emit(prog))
}

func TestEmitExpansion(t *testing.T) {
	prog := Replay([]string{"G1 X1 E1\r", "M400\r"}, TrackOptions{})
	prog.Lines[0].Expansion = []Line{
		{Synthetic: SyntheticMove, AbsolutePositioning: true, End: MachineState{X: 0.5, E: 0.4}, EOL: "\r"},
		{Synthetic: SyntheticReset, End: MachineState{E: 0.5}, EOL: "\r"},
	}
	assert.Equal(t, []string{
		"G1 X0.50000 E0.4000000\r",
		"G92 E0.5000000\r",
		"M400\r",
	}, Emit(prog))
}
