// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package apcb edits an AMD PSP Configuration Blob (APCB) in place, directly
// inside a caller-supplied byte buffer.
//
// The blob layout is:
//
//	| V2 header | V3 extended header | group | group | ... |
//
// where each group is a group header followed by entries, each entry is an
// entry header followed by a 4-byte-aligned body, and the body of a
// Tokens-typed entry is a list of (key, value) token records sorted by key.
//
// See: AgesaPkg/Addendum/Apcb/Inc/CommonV3/ApcbV3Arch.h
package apcb

// On-disk sizes. Asserted against binary.Size in ondisk_test.go.
const (
	headerV2Size    = 32
	headerV3ExtSize = 96
	// headerV3Size is the size of the combined V2+V3 blob header.
	headerV3Size    = headerV2Size + headerV3ExtSize
	groupHeaderSize = 16
	entryHeaderSize = 16
	tokenPairSize   = 8

	// entryAlignment is the alignment of entries inside a group body. Entry
	// bodies are padded up to it; the pad bytes count into group_size.
	entryAlignment = 4
)

// Signatures, all ASCII with the first letter at the lowest address.
var (
	headerV2Signature       = [4]byte{'A', 'P', 'C', 'B'}
	headerV3Signature       = [4]byte{'E', 'C', 'B', '2'}
	headerV3EndingSignature = [4]byte{'B', 'C', 'B', 'A'}
)

// HeaderV2 is the blob header every APCB starts with.
type HeaderV2 struct {
	// Signature is ASCII "APCB"
	Signature [4]byte
	// HeaderSize is 32 for a bare V2 header, 128 when the V3 extended
	// header follows
	HeaderSize uint16
	// Version, BCD; 0x30 is version 3.0
	Version uint16
	// APCBSize counts the used bytes of the blob, HeaderSize included
	APCBSize uint32
	// UniqueAPCBInstance distinguishes APCB generations over a flashed
	// BIOS life cycle; bumped by Save
	UniqueAPCBInstance uint32
	// ChecksumByte makes the byte sum over [0, APCBSize) zero mod 256
	ChecksumByte uint8
	Reserved1    [3]uint8
	Reserved2    [3]uint32
}

func newHeaderV2() HeaderV2 {
	return HeaderV2{
		Signature:  headerV2Signature,
		HeaderSize: headerV2Size,
		Version:    0x30,
		APCBSize:   headerV2Size,
	}
}

// HeaderV3Ext is the extended header; present iff HeaderV2.HeaderSize == 128.
// Everything except the checksum and integrity fields is fixed by the format.
type HeaderV3Ext struct {
	// Signature is ASCII "ECB2"
	Signature [4]byte
	Reserved1 uint16 // 0
	Reserved2 uint16 // 0x10
	// StructVersion is 0x12 (version 18)
	StructVersion uint16
	// DataVersion is 0x100 (version 256)
	DataVersion uint16
	// ExtHeaderSize is 96
	ExtHeaderSize uint32
	Reserved3     uint16 // 0
	Reserved4     uint16 // 0xFFFF
	Reserved5     uint16 // 0x40
	Reserved6     uint16 // 0
	Reserved7     [2]uint32
	// DataOffset is 88
	DataOffset     uint16
	HeaderChecksum uint8
	Reserved8      uint8
	Reserved9      [3]uint32
	IntegritySign  [32]uint8
	Reserved10     [3]uint32
	// SignatureEnding is ASCII "BCBA"
	SignatureEnding [4]byte
}

func newHeaderV3Ext() HeaderV3Ext {
	return HeaderV3Ext{
		Signature:       headerV3Signature,
		Reserved2:       0x10,
		StructVersion:   0x12,
		DataVersion:     0x100,
		ExtHeaderSize:   headerV3ExtSize,
		Reserved4:       0xFFFF,
		Reserved5:       0x40,
		DataOffset:      0x58,
		SignatureEnding: headerV3EndingSignature,
	}
}

// GroupHeader precedes the entries of one group.
type GroupHeader struct {
	// Signature is 4 ASCII characters, e.g. "PSPG"
	Signature [4]byte
	GroupID   uint16
	// HeaderSize == 16
	HeaderSize uint16
	// Version, BCD; always 1
	Version  uint16
	Reserved uint16
	// GroupSize counts the whole group, header included
	GroupSize uint32
}

func newGroupHeader() GroupHeader {
	return GroupHeader{
		Signature:  [4]byte{' ', ' ', ' ', ' '},
		HeaderSize: groupHeaderSize,
		Version:    1,
		GroupSize:  groupHeaderSize,
	}
}

// ContextType selects the shape of an entry body.
type ContextType uint8

const (
	ContextTypeStruct     ContextType = 0
	ContextTypeParameters ContextType = 1
	ContextTypeTokens     ContextType = 2
)

func (t ContextType) String() string {
	switch t {
	case ContextTypeStruct:
		return "Struct"
	case ContextTypeParameters:
		return "Parameters"
	case ContextTypeTokens:
		return "Tokens"
	}
	return "Unknown"
}

func (t ContextType) valid() bool {
	return t <= ContextTypeTokens
}

// ContextFormat is the in-body ordering discipline of an entry.
type ContextFormat uint8

const (
	ContextFormatRaw           ContextFormat = 0
	ContextFormatSortAscending ContextFormat = 1
	// ContextFormatSortDescending is reserved; not written by this package.
	ContextFormatSortDescending ContextFormat = 2
)

func (f ContextFormat) valid() bool {
	return f <= ContextFormatSortDescending
}

// EntryHeader precedes the body of one entry.
type EntryHeader struct {
	// GroupID repeats the enclosing group's id
	GroupID uint16
	// EntryID identifies the payload schema; for Tokens entries it encodes
	// the token kind instead
	EntryID uint16
	// EntrySize counts the whole entry, header included
	EntrySize  uint16
	InstanceID uint16
	// ContextType: see ContextType
	ContextType uint8
	// ContextFormat: see ContextFormat
	ContextFormat uint8
	// UnitSize is the record size in bytes; 8 for Tokens entries, else 0
	UnitSize     uint8
	PriorityMask uint8
	// KeySize is the sort key size, <= UnitSize; meaningful when
	// ContextFormat != Raw
	KeySize uint8
	// KeyPos is the sort key position inside the unit
	KeyPos uint8
	// BoardInstanceMask selects the board instances the entry applies to
	BoardInstanceMask uint16
}

func newEntryHeader() EntryHeader {
	return EntryHeader{
		EntrySize:         entryHeaderSize,
		PriorityMask:      0x20,
		BoardInstanceMask: 0xFFFF,
	}
}

// compositeKey is the sort key ordering entries within a group.
func (h *EntryHeader) compositeKey() entryKey {
	return entryKey{h.GroupID, h.EntryID, h.InstanceID, h.BoardInstanceMask}
}

// entryKey orders entries lexicographically within a group. The full
// composite is unique.
type entryKey struct {
	groupID           uint16
	entryID           uint16
	instanceID        uint16
	boardInstanceMask uint16
}

func (k entryKey) less(o entryKey) bool {
	if k.groupID != o.groupID {
		return k.groupID < o.groupID
	}
	if k.entryID != o.entryID {
		return k.entryID < o.entryID
	}
	if k.instanceID != o.instanceID {
		return k.instanceID < o.instanceID
	}
	return k.boardInstanceMask < o.boardInstanceMask
}

// TokenPair is one 8-byte record inside a Tokens entry body.
type TokenPair struct {
	Key   uint32
	Value uint32
}
