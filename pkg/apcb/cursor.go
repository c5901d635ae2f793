// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// cursor walks a collection of size-prefixed records inside one byte slice.
// It is the only place that inspects record layout and alignment. The slice
// it was created over stays mutable through the usual writeAt path; the
// cursor itself never writes.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// offset is the position of the next record relative to the cursor's start.
func (c *cursor) offset() int {
	return c.off
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

// takeHeader decodes the fixed-size record v from the front of the remaining
// bytes and advances past it. Returns false without advancing if fewer than
// size-of-v bytes remain.
func (c *cursor) takeHeader(v interface{}) bool {
	size := binary.Size(v)
	if size < 0 || c.remaining() < size {
		return false
	}
	if err := binary.Read(bytes.NewReader(c.buf[c.off:c.off+size]), binary.LittleEndian, v); err != nil {
		return false
	}
	c.off += size
	return true
}

// takeBody splits off size bytes and returns them, then advances past the
// pad bytes that re-align the cursor to alignment, if any are present.
// Returns nil, false without advancing if fewer than size bytes remain.
func (c *cursor) takeBody(size, alignment int) ([]byte, bool) {
	if size < 0 || c.remaining() < size {
		return nil, false
	}
	body := c.buf[c.off : c.off+size]
	c.off += size
	if pad := size % alignment; pad != 0 {
		pad = alignment - pad
		if c.remaining() >= pad {
			c.off += pad
		}
	}
	return body, true
}

// readAt decodes the fixed-size record v from buf at off.
func readAt(buf []byte, off int, v interface{}) error {
	size := binary.Size(v)
	if size < 0 || off < 0 || off+size > len(buf) {
		return fsErr(InconsistentHeader, "collection is too small for record")
	}
	return binary.Read(bytes.NewReader(buf[off:off+size]), binary.LittleEndian, v)
}

// writeAt encodes the fixed-size record v into buf at off, in place.
func writeAt(buf []byte, off int, v interface{}) error {
	size := binary.Size(v)
	if size < 0 || off < 0 || off+size > len(buf) {
		return fsErr(InconsistentHeader, "collection is too small for record")
	}
	w := bytesextra.NewReadWriteSeeker(buf)
	if _, err := w.Seek(int64(off), io.SeekStart); err != nil {
		return fsErr(InconsistentHeader, "collection is not seekable")
	}
	return binary.Write(w, binary.LittleEndian, v)
}
