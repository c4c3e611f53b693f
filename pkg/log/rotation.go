// Size-rotated log file behind the CLI's --log-file flag
//
// The live file is renamed to <name>.1 when it would grow past MaxSize;
// older backups shift up one number and the one past MaxBackups is
// removed. With Compress each new backup is gzipped to <name>.1.gz.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// RotationConfig configures a RotatingFileWriter.
type RotationConfig struct {
	Filename string

	// MaxSize is the size in megabytes that triggers a rotation.
	MaxSize int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool

	// maxBytes overrides MaxSize.
	maxBytes int64
}

// RotatingFileWriter is an io.Writer over a size-rotated file.
type RotatingFileWriter struct {
	mu    sync.Mutex
	cfg   RotationConfig
	limit int64
	file  *os.File
	size  int64
}

// NewRotatingFileWriter opens cfg.Filename for appending, creating its
// directory when needed.
func NewRotatingFileWriter(cfg RotationConfig) (*RotatingFileWriter, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("log file name is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = defaultMaxBackups
	}
	w := &RotatingFileWriter{cfg: cfg, limit: int64(cfg.MaxSize) << 20}
	if cfg.maxBytes > 0 {
		w.limit = cfg.maxBytes
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open(mode int) error {
	f, err := os.OpenFile(w.cfg.Filename, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would take the file past its
// limit. A single entry is never split across files.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// backup returns the name of the i-th newest backup.
func (w *RotatingFileWriter) backup(i int) string {
	name := fmt.Sprintf("%s.%d", w.cfg.Filename, i)
	if w.cfg.Compress {
		name += ".gz"
	}
	return name
}

// rotate moves the live file to the first backup and reopens it empty.
// When the move fails the old file is reopened so entries are not lost.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	err := w.shift()
	mode := os.O_TRUNC
	if err != nil {
		mode = os.O_APPEND
	}
	if oerr := w.open(mode); oerr != nil {
		return oerr
	}
	return err
}

func (w *RotatingFileWriter) shift() error {
	if err := removeIfExists(w.backup(w.cfg.MaxBackups)); err != nil {
		return err
	}
	for i := w.cfg.MaxBackups - 1; i >= 1; i-- {
		if err := os.Rename(w.backup(i), w.backup(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	first := w.cfg.Filename + ".1"
	if err := os.Rename(w.cfg.Filename, first); err != nil {
		return err
	}
	if w.cfg.Compress {
		return gzipFile(first)
	}
	return nil
}

// gzipFile replaces name with name.gz.
func gzipFile(name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(name + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(dst)
	_, err = io.Copy(gz, src)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name + ".gz")
		return err
	}
	src.Close()
	return os.Remove(name)
}

func removeIfExists(name string) error {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close closes the live file. Later writes fail with os.ErrClosed.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// TeeToFile sends l's output to console and to a rotating file. console
// may be nil to log to the file only. Colour is disabled so escape codes
// do not end up in the file. The caller closes the returned writer.
func TeeToFile(l *Logger, console io.Writer, config RotationConfig) (*RotatingFileWriter, error) {
	fw, err := NewRotatingFileWriter(config)
	if err != nil {
		return nil, err
	}
	var w io.Writer = fw
	if console != nil {
		w = io.MultiWriter(console, fw)
	}
	l.SetWriter(w)
	l.SetColorize(false)
	return fw, nil
}
