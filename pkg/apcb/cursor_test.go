// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorTakeHeader(t *testing.T) {
	buf := []byte{
		'T', 'E', 'S', 'T', // signature
		0x01, 0x17, // group id
		0x10, 0x00, // header size
		0x01, 0x00, // version
		0x00, 0x00, // reserved
		0x20, 0x00, 0x00, 0x00, // group size
		0xAA, // trailing byte
	}
	cur := newCursor(buf)

	var hdr GroupHeader
	require.True(t, cur.takeHeader(&hdr))
	require.Equal(t, [4]byte{'T', 'E', 'S', 'T'}, hdr.Signature)
	require.Equal(t, uint16(0x1701), hdr.GroupID)
	require.Equal(t, uint32(0x20), hdr.GroupSize)
	require.Equal(t, groupHeaderSize, cur.offset())
	require.Equal(t, 1, cur.remaining())

	// Not enough bytes left for another header; the cursor stays put.
	require.False(t, cur.takeHeader(&hdr))
	require.Equal(t, groupHeaderSize, cur.offset())
}

func TestCursorTakeBody(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cur := newCursor(buf)

	body, ok := cur.takeBody(3, 4)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, body)
	// One pad byte consumed to restore 4-alignment.
	require.Equal(t, 4, cur.offset())

	body, ok = cur.takeBody(4, 4)
	require.True(t, ok)
	require.Equal(t, []byte{5, 6, 7, 8}, body)
	require.Equal(t, 8, cur.offset())

	// Pad bytes past the end of the collection are tolerated.
	body, ok = cur.takeBody(2, 4)
	require.True(t, ok)
	require.Equal(t, []byte{9, 10}, body)
	require.Equal(t, 0, cur.remaining())

	_, ok = cur.takeBody(1, 4)
	require.False(t, ok)
}

func TestReadWriteAt(t *testing.T) {
	buf := make([]byte, 32)
	in := TokenPair{Key: 0x11223344, Value: 0xDEADBEEF}
	require.NoError(t, writeAt(buf, 8, &in))

	require.Equal(t, []byte{0x44, 0x33, 0x22, 0x11, 0xEF, 0xBE, 0xAD, 0xDE}, buf[8:16])

	var out TokenPair
	require.NoError(t, readAt(buf, 8, &out))
	require.Equal(t, in, out)

	require.Error(t, writeAt(buf, 28, &in))
	require.Error(t, readAt(buf, 28, &out))
}
