// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/log"
)

// SplitLines splits data on '\n' and drops the terminators. A '\r' before
// the '\n' stays on its line. finalNewline reports whether data ended
// with '\n'.
func SplitLines(data []byte) (lines []string, finalNewline bool) {
	if len(data) == 0 {
		return nil, false
	}
	text := string(data)
	finalNewline = strings.HasSuffix(text, "\n")
	if finalNewline {
		text = text[:len(text)-1]
	}
	return strings.Split(text, "\n"), finalNewline
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string, finalNewline bool) []byte {
	n := len(lines)
	for _, l := range lines {
		n += len(l)
	}
	var buf bytes.Buffer
	buf.Grow(n)
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	if finalNewline && len(lines) > 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// OutputPath returns the default destination for src: the same directory
// with "_corrected" before the extension.
func OutputPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + "_corrected" + ext
}

// CorrectFile corrects the file at src and writes the result to dst,
// which may equal src. Line endings and the presence of a final newline
// are preserved. dst is replaced atomically; on failure it is left as it
// was.
func (c *Corrector) CorrectFile(ctx context.Context, src, dst string, progress func(int)) (*Result, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.ReadError(src, err)
	}
	if info.IsDir() {
		return nil, errors.ReadError(src, fs.ErrInvalid).SetContext("reason", "is a directory")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, errors.ReadError(src, err)
	}

	lines, finalNewline := SplitLines(data)
	res, err := c.Run(ctx, lines, progress)
	if err != nil {
		if he, ok := errors.As(err); ok && he.File == "" {
			he.SetFile(src)
		}
		return nil, err
	}

	if err := WriteFileAtomic(ctx, dst, JoinLines(res.Lines, finalNewline), info.Mode().Perm()); err != nil {
		return nil, err
	}
	c.log.WithFields(log.Fields{
		"src":       src,
		"dst":       dst,
		"corrected": res.Stats.Corrected,
	}).Info("file corrected")
	return res, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it
// and renames it over path while holding an advisory lock on the
// directory. The temporary file is removed on any failure.
func WriteFileAtomic(ctx context.Context, path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	unlock, err := lockDir(ctx, dir)
	if err != nil {
		return errors.WriteError(path, err)
	}
	defer unlock()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WriteError(path, err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WriteError(path, err)
	}

	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WriteError(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WriteError(path, err)
	}
	_ = syncDir(dir)
	return nil
}
