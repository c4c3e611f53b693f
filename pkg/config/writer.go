package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

// Render returns opts as an INI [corrector] section.
func Render(opts corrector.Options) string {
	var sb strings.Builder
	sb.WriteString("# G-code corrector settings\n")
	sb.WriteString("# Lengths are in mm. Flow ratios are the share of extrusion kept\n")
	sb.WriteString("# at a 90 degree corner.\n")
	sb.WriteString("[")
	sb.WriteString(corrector.Section)
	sb.WriteString("]\n")

	option := func(name, value string) {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	option("start_enabled", strconv.FormatBool(opts.StartEnabled))
	option("start_length", formatFloat(opts.StartLength))
	option("start_flow_ratio", formatFloat(opts.StartFlowRatio))
	option("end_enabled", strconv.FormatBool(opts.EndEnabled))
	option("end_length", formatFloat(opts.EndLength))
	option("end_flow_ratio", formatFloat(opts.EndFlowRatio))
	option("min_segment_length", formatFloat(opts.MinSegmentLength))
	option("arcs_carry_extrusion", strconv.FormatBool(opts.ArcsCarryExtrusion))
	option("follow_extrusion_mode_switches", strconv.FormatBool(opts.FollowExtrusionModeSwitches))
	return sb.String()
}

// RenderYAML returns opts as a YAML document with a corrector key.
func RenderYAML(opts corrector.Options) ([]byte, error) {
	return yaml.Marshal(map[string]corrector.Options{corrector.Section: opts})
}

// WriteDefault writes opts to path, choosing the format from the file
// extension. An existing file is kept unless force is set, in which case
// it is first copied to a timestamped backup.
func WriteDefault(ctx context.Context, path string, opts corrector.Options, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return errors.WriteError(path, os.ErrExist)
		}
		if err := createBackup(path); err != nil {
			return err
		}
	}

	var data []byte
	if isYAML(path) {
		var err error
		if data, err = RenderYAML(opts); err != nil {
			return errors.WriteError(path, err)
		}
	} else {
		data = []byte(Render(opts))
	}
	return corrector.WriteFileAtomic(ctx, path, data, 0o644)
}

// createBackup copies path to path-YYYYMMDD_HHMMSS.ext.
func createBackup(path string) error {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	backupPath := fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102_150405"), ext)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ReadError(path, err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return errors.WriteError(backupPath, err)
	}
	return nil
}
