// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// The size constants are wire-visible; every record must serialize to
// exactly its declared size.
func TestRecordSizes(t *testing.T) {
	require.Equal(t, headerV2Size, binary.Size(HeaderV2{}))
	require.Equal(t, headerV3ExtSize, binary.Size(HeaderV3Ext{}))
	require.Equal(t, headerV3Size, binary.Size(HeaderV2{})+binary.Size(HeaderV3Ext{}))
	require.Equal(t, groupHeaderSize, binary.Size(GroupHeader{}))
	require.Equal(t, entryHeaderSize, binary.Size(EntryHeader{}))
	require.Equal(t, tokenPairSize, binary.Size(TokenPair{}))

	require.Zero(t, headerV2Size%entryAlignment)
	require.Zero(t, groupHeaderSize%entryAlignment)
	require.Zero(t, entryHeaderSize%entryAlignment)
	require.Zero(t, tokenPairSize%entryAlignment)
}

func TestHeaderDefaults(t *testing.T) {
	hdr := newHeaderV2()
	require.Equal(t, [4]byte{'A', 'P', 'C', 'B'}, hdr.Signature)
	require.Equal(t, uint16(0x30), hdr.Version)
	require.Equal(t, uint16(headerV2Size), hdr.HeaderSize)
	require.Equal(t, uint32(headerV2Size), hdr.APCBSize)

	ext := newHeaderV3Ext()
	require.Equal(t, [4]byte{'E', 'C', 'B', '2'}, ext.Signature)
	require.Equal(t, [4]byte{'B', 'C', 'B', 'A'}, ext.SignatureEnding)
	require.Equal(t, uint16(0x12), ext.StructVersion)
	require.Equal(t, uint16(0x100), ext.DataVersion)
	require.Equal(t, uint32(headerV3ExtSize), ext.ExtHeaderSize)
	require.Equal(t, uint16(0x58), ext.DataOffset)

	ghdr := newGroupHeader()
	require.Equal(t, uint16(groupHeaderSize), ghdr.HeaderSize)
	require.Equal(t, uint16(1), ghdr.Version)
	require.Equal(t, uint32(groupHeaderSize), ghdr.GroupSize)

	ehdr := newEntryHeader()
	require.Equal(t, uint16(entryHeaderSize), ehdr.EntrySize)
	require.Equal(t, uint8(0x20), ehdr.PriorityMask)
	require.Equal(t, uint16(0xFFFF), ehdr.BoardInstanceMask)
}

func TestEntryKeyOrdering(t *testing.T) {
	a := entryKey{0x1701, 0x60, 0, 0xFFFF}
	b := entryKey{0x1701, 0x61, 0, 0x0000}
	require.True(t, a.less(b))
	require.False(t, b.less(a))
	require.False(t, a.less(a))

	c := entryKey{0x1701, 0x60, 1, 0x0000}
	require.True(t, a.less(c))
	require.True(t, c.less(b))
}

func TestPriorityMask(t *testing.T) {
	mask := CreatePriorityMask(PriorityLevelHardForce, PriorityLevelLow)
	require.Equal(t, PriorityMask(0x11), mask)
	require.Equal(t, "HardForce|Low", mask.String())
	require.Equal(t, "none", PriorityMask(0).String())
}

func TestTokenKindMask(t *testing.T) {
	require.Equal(t, uint32(0x1), TokenKindBool.Mask())
	require.Equal(t, uint32(0xFF), TokenKindByte.Mask())
	require.Equal(t, uint32(0xFFFF), TokenKindWord.Mask())
	require.Equal(t, uint32(0xFFFFFFFF), TokenKindDword.Mask())
	require.False(t, TokenKind(3).valid())
}
