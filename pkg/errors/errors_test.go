package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *HostError
		want string
	}{
		{"section", ConfigSectionError("corrector"), "[CONFIG_SECTION:corrector] section 'corrector' not found"},
		{"option", ConfigOptionError("corrector", "start_length"), "[CONFIG_OPTION:start_length] option 'start_length' not found in section 'corrector'"},
		{"file", ReadError("part.gcode", fs.ErrNotExist), "[IO_READ:part.gcode] cannot read source: file does not exist"},
		{"file and line", RunError("boom").SetFile("a.gcode").SetLine(12), "[RUN:a.gcode:12] boom"},
		{"line only", WithLineNumber(GCodeInvalidParameterError("G1", "X", "1e-3", "exponent not supported"), 7), "[GCODE_INVALID_PARAM:line 7] G-code command 'G1': invalid parameter 'X=1e-3' (exponent not supported)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesWrapped(t *testing.T) {
	base := WriteError("out.gcode", fs.ErrPermission)
	wrapped := fmt.Errorf("correct file: %w", base)

	if !Is(wrapped, ErrIOWrite) {
		t.Error("Is should see through fmt wrapping")
	}
	if !IsIO(wrapped) {
		t.Error("IsIO should match IO_WRITE")
	}
	if Is(wrapped, ErrIORead) {
		t.Error("Is matched the wrong code")
	}
	if !stderrors.Is(wrapped, fs.ErrPermission) {
		t.Error("underlying error lost")
	}
}

func TestIsNestedHostErrors(t *testing.T) {
	inner := CanceledError(10, stderrors.New("context canceled"))
	outer := Wrap(inner, ErrRun, "job failed")
	if !Is(outer, ErrRunCanceled) {
		t.Error("Is should match an inner HostError")
	}
	if !Is(outer, ErrRun) {
		t.Error("Is should match the outer HostError")
	}
	if Is(nil, ErrRun) {
		t.Error("nil never matches")
	}
}

func TestIsConfig(t *testing.T) {
	if !IsConfig(ConfigValidationError("corrector", "start_length", "must be above 0")) {
		t.Error("validation error not classified as config")
	}
	if IsConfig(GeometryError("nan")) {
		t.Error("geometry error classified as config")
	}
}

func TestFromPanic(t *testing.T) {
	if FromPanic(nil) != nil {
		t.Fatal("nil panic value should give nil")
	}
	err := FromPanic("index out of range")
	if err.Code != ErrRun {
		t.Errorf("code = %s, want %s", err.Code, ErrRun)
	}
	cause := stderrors.New("bad")
	err = FromPanic(cause)
	if !stderrors.Is(err, cause) {
		t.Error("panic error should be wrapped")
	}
}

func TestSetContext(t *testing.T) {
	err := WithConfigPath(New(ErrConfigType, "bad"), "/tmp/c.cfg")
	if err.Context["config_path"] != "/tmp/c.cfg" {
		t.Errorf("context = %v", err.Context)
	}
	if WithLineNumber(nil, 3) != nil {
		t.Error("nil passthrough")
	}
}
