// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gcode-corrector/pkg/errors"
)

func TestLoadString(t *testing.T) {
	data := `
# leading comment
[corrector]
start_enabled: true
start_length: 0.8   ; trailing comment
end_flow_ratio = 0.25

[notes]
author: someone
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if !cfg.HasSection("corrector") {
		t.Error("expected [corrector] section to exist")
	}
	if cfg.HasSection("nonexistent") {
		t.Error("expected [nonexistent] section to not exist")
	}
	if names := cfg.GetSectionNames(); len(names) != 2 || names[0] != "corrector" || names[1] != "notes" {
		t.Errorf("unexpected section order %v", names)
	}

	sec, err := cfg.GetSection("corrector")
	if err != nil {
		t.Fatalf("GetSection(corrector) failed: %v", err)
	}
	if sec.GetName() != "corrector" {
		t.Errorf("expected name 'corrector', got '%s'", sec.GetName())
	}

	length, err := sec.GetFloat("start_length")
	if err != nil {
		t.Fatalf("GetFloat(start_length) failed: %v", err)
	}
	if length != 0.8 {
		t.Errorf("expected 0.8, got %f", length)
	}

	ratio, err := sec.GetFloat("END_FLOW_RATIO")
	if err != nil {
		t.Fatalf("GetFloat(END_FLOW_RATIO) failed: %v", err)
	}
	if ratio != 0.25 {
		t.Errorf("expected 0.25, got %f", ratio)
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{"empty header", "[corrector]\na: 1\n[ ]\n", 3},
		{"orphan option", "a: 1\n", 1},
		{"no separator", "[corrector]\njust words\n", 2},
		{"include", "[include other.cfg]\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			he, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected HostError, got %T", err)
			}
			if he.Code != errors.ErrConfigValidation {
				t.Errorf("expected %s, got %s", errors.ErrConfigValidation, he.Code)
			}
			if he.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, he.Line)
			}
		})
	}
}

func TestSectionGet(t *testing.T) {
	cfg, err := LoadString(`
[test]
string_val: hello
float_val: 3.14
bool_true: yes
bool_false: off
bad_float: abc
bad_bool: maybe
`)
	if err != nil {
		t.Fatal(err)
	}
	sec, _ := cfg.GetSection("test")

	if v, _ := sec.Get("string_val"); v != "hello" {
		t.Errorf("expected 'hello', got '%s'", v)
	}
	if v, _ := sec.Get("missing", "fallback"); v != "fallback" {
		t.Errorf("expected fallback, got '%s'", v)
	}
	if v, _ := sec.GetFloat("float_val"); v != 3.14 {
		t.Errorf("expected 3.14, got %f", v)
	}
	if v, _ := sec.GetBool("bool_true"); !v {
		t.Error("expected bool_true to be true")
	}
	if v, _ := sec.GetBool("bool_false"); v {
		t.Error("expected bool_false to be false")
	}
	if v, _ := sec.GetBool("missing", true); !v {
		t.Error("expected fallback true")
	}

	if _, err := sec.GetFloat("bad_float"); !errors.Is(err, errors.ErrConfigType) {
		t.Errorf("expected type error, got %v", err)
	}
	if _, err := sec.GetBool("bad_bool"); !errors.Is(err, errors.ErrConfigType) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestAccessTracking(t *testing.T) {
	cfg, err := LoadString(`
[corrector]
start_length: 1
end_length: 1
typo_option: 2

[unused]
x: 1
`)
	if err != nil {
		t.Fatal(err)
	}

	sec, _ := cfg.GetSection("corrector")
	_, _ = sec.GetFloat("start_length")
	_, _ = sec.GetFloat("end_length")
	_, _ = sec.GetFloat("never_set", 1)

	unused := sec.GetUnusedOptions()
	if len(unused) != 1 || unused[0] != "typo_option" {
		t.Errorf("expected [typo_option], got %v", unused)
	}

	sections := cfg.GetUnusedSections()
	if len(sections) != 1 || sections[0] != "unused" {
		t.Errorf("expected [unused], got %v", sections)
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, _ := LoadString(`
[test]
negative: -1
zero: 0
big: 2
`)
	sec, _ := cfg.GetSection("test")
	zero, one := 0.0, 1.0

	if _, err := sec.GetFloatWithBounds("negative", FloatBounds{MinVal: &zero}); !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("expected minimum error, got %v", err)
	}
	if _, err := sec.GetFloatWithBounds("zero", FloatBounds{Above: &zero}); err == nil {
		t.Error("expected above error")
	}
	if _, err := sec.GetFloatWithBounds("big", FloatBounds{MaxVal: &one}); err == nil {
		t.Error("expected maximum error")
	}
	if _, err := sec.GetFloatWithBounds("big", FloatBounds{Below: &one}); err == nil {
		t.Error("expected below error")
	}
	if v, err := sec.GetFloatWithBounds("zero", FloatBounds{MinVal: &zero, MaxVal: &one}); err != nil || v != 0 {
		t.Errorf("expected 0 within bounds, got %v, %v", v, err)
	}
}

func TestMissingOptionError(t *testing.T) {
	cfg, _ := LoadString("[test]\nfoo: bar\n")
	sec, _ := cfg.GetSection("test")

	_, err := sec.Get("missing")
	if !errors.Is(err, errors.ErrConfigOption) {
		t.Errorf("expected option error, got %v", err)
	}

	_, err = cfg.GetSection("missing")
	if !errors.Is(err, errors.ErrConfigSection) {
		t.Errorf("expected section error, got %v", err)
	}
}

func TestRepeatedSectionsMerge(t *testing.T) {
	cfg, err := LoadString(`
[corrector]
start_length: 1
end_length: 1

[corrector]
end_length: 2
`)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(cfg.GetSectionNames()); n != 1 {
		t.Fatalf("expected 1 section, got %d", n)
	}
	sec, _ := cfg.GetSection("corrector")
	if v, _ := sec.GetFloat("start_length"); v != 1 {
		t.Errorf("expected start_length 1, got %v", v)
	}
	if v, _ := sec.GetFloat("end_length"); v != 2 {
		t.Errorf("expected end_length 2, got %v", v)
	}
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cfg", "[corrector]\nstart_length: 0.7\n")
	writeFile(t, dir, "b.cfg", "[corrector]\nend_length: 0.9\n")
	main := writeFile(t, dir, "main.cfg", "[include *.cfg.d]\n[include a.cfg]\n[include b.cfg]\n[corrector]\nmin_segment_length: 3\n")

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sec, _ := cfg.GetSection("corrector")
	for opt, want := range map[string]float64{"start_length": 0.7, "end_length": 0.9, "min_segment_length": 3} {
		if v, _ := sec.GetFloat(opt); v != want {
			t.Errorf("%s: expected %v, got %v", opt, want, v)
		}
	}
}

func TestLoadIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	missing := writeFile(t, dir, "missing.cfg", "[include nope.cfg]\n")
	if _, err := Load(missing); !errors.Is(err, errors.ErrIORead) {
		t.Errorf("expected read error, got %v", err)
	}

	loop := writeFile(t, dir, "loop.cfg", "[include loop.cfg]\n")
	if _, err := Load(loop); !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("expected recursive include error, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "absent.cfg")); !errors.Is(err, errors.ErrIORead) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "corrector.yaml", `
corrector:
  start_enabled: false
  end_length: 0.75
empty:
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.HasSection("empty") {
		t.Error("expected empty section")
	}
	sec, _ := cfg.GetSection("corrector")
	if v, _ := sec.GetBool("start_enabled"); v {
		t.Error("expected start_enabled false")
	}
	if v, _ := sec.GetFloat("end_length"); v != 0.75 {
		t.Errorf("expected 0.75, got %v", v)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"list.yml":    "- a\n- b\n",
		"nested.yaml": "corrector:\n  start_length:\n    deep: 1\n",
		"scalar.yaml": "corrector: 5\n",
		"broken.yaml": "corrector: [\n",
	}
	for name, data := range tests {
		path := writeFile(t, dir, name, data)
		if _, err := Load(path); !errors.Is(err, errors.ErrConfigValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}
