package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

func TestRenderRoundTrip(t *testing.T) {
	opts := corrector.DefaultOptions()
	opts.EndEnabled = false
	opts.StartLength = 0.35
	opts.FollowExtrusionModeSwitches = true

	cfg, err := LoadString(Render(opts))
	if err != nil {
		t.Fatalf("rendered config does not parse: %v", err)
	}
	got, err := CorrectorOptions(cfg, corrector.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got != opts {
		t.Errorf("expected %+v, got %+v", opts, got)
	}
}

func TestWriteDefault(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := corrector.DefaultOptions()
	opts.MinSegmentLength = 4

	for _, name := range []string{"corrector.cfg", "corrector.yaml"} {
		path := filepath.Join(dir, name)
		if err := WriteDefault(ctx, path, opts, false); err != nil {
			t.Fatalf("%s: WriteDefault failed: %v", name, err)
		}
		got, err := LoadCorrectorOptions(path)
		if err != nil {
			t.Fatalf("%s: reload failed: %v", name, err)
		}
		if got != opts {
			t.Errorf("%s: expected %+v, got %+v", name, opts, got)
		}
	}
}

func TestWriteDefaultExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "corrector.cfg", "[corrector]\nend_length: 2\n")

	err := WriteDefault(ctx, path, corrector.DefaultOptions(), false)
	if !errors.Is(err, errors.ErrIOWrite) {
		t.Fatalf("expected write error for existing file, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "end_length: 2") {
		t.Error("existing file should be untouched")
	}

	if err := WriteDefault(ctx, path, corrector.DefaultOptions(), true); err != nil {
		t.Fatalf("forced WriteDefault failed: %v", err)
	}
	backups, _ := filepath.Glob(filepath.Join(dir, "corrector-*.cfg"))
	if len(backups) != 1 {
		t.Fatalf("expected one backup, got %v", backups)
	}
	old, _ := os.ReadFile(backups[0])
	if !strings.Contains(string(old), "end_length: 2") {
		t.Error("backup should hold the previous content")
	}
}
