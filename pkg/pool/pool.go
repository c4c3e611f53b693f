// Pooled builders for synthetic G-code lines
//
// A correction run renders every split move word by word. The builders
// come from a sync.Pool so a large file does not allocate a buffer per
// emitted line.
//
//	b := pool.GetLine("G1")
//	defer pool.PutLine(b)
//	b.Word('X', "10.00000")
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import "sync"

// maxPooledCap is the largest buffer returned to the pool; a line that
// grew past it came from an unusually long comment.
const maxPooledCap = 512

// LineBuilder assembles one G-code line: a command word, parameter words
// and an optional trailing comment.
type LineBuilder struct {
	buf []byte
}

var linePool = sync.Pool{
	New: func() any {
		return &LineBuilder{buf: make([]byte, 0, 64)}
	},
}

// GetLine returns an empty builder started with the command word.
func GetLine(command string) *LineBuilder {
	b := linePool.Get().(*LineBuilder)
	b.buf = append(b.buf[:0], command...)
	return b
}

// PutLine returns b to the pool. b must not be used afterwards.
func PutLine(b *LineBuilder) {
	if b == nil || cap(b.buf) > maxPooledCap {
		return
	}
	linePool.Put(b)
}

// Word appends a space separated parameter word such as "X10.5".
func (b *LineBuilder) Word(letter byte, value string) {
	b.buf = append(b.buf, ' ', letter)
	b.buf = append(b.buf, value...)
}

// Comment appends a trailing comment, kept as written including its ';'.
func (b *LineBuilder) Comment(text string) {
	if text == "" {
		return
	}
	b.buf = append(b.buf, ' ')
	b.buf = append(b.buf, text...)
}

// String returns a copy of the line.
func (b *LineBuilder) String() string {
	return string(b.buf)
}
