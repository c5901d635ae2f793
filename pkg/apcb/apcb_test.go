// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBufferSize = 8 * 1024

var (
	pspSignature    = [4]byte{'P', 'S', 'P', 'G'}
	memorySignature = [4]byte{'M', 'E', 'M', 'G'}
	tokenSignature  = [4]byte{'T', 'O', 'K', 'N'}
)

func TestLoadGarbageImage(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	for i := range buffer {
		buffer[i] = 0xFF
	}
	_, err := Load(buffer, nil)
	require.Error(t, err)
	var fsError *FileSystemError
	require.ErrorAs(t, err, &fsError)
	require.Equal(t, "V2_HEADER::signature", fsError.Field)
}

func TestCreateEmptyImage(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)

	require.Equal(t, uint32(headerV3Size), a.Header().APCBSize)
	require.Equal(t, uint16(headerV3Size), a.Header().HeaderSize)
	require.Equal(t, uint32(42), a.Header().UniqueAPCBInstance)
	require.NotNil(t, a.ExtHeader())

	groups, err := a.Groups()
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestCreateTooSmallImage(t *testing.T) {
	buffer := make([]byte, 1)
	_, err := Create(buffer, 42, nil)
	require.ErrorIs(t, err, ErrOutOfSpace)
}

func TestCreateImageWithOneGroup(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))

	groups, err := a.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, GroupIDPSP, groups[0].ID())
	require.Equal(t, "PSPG", groups[0].Signature())
}

func TestCreateImageWithTwoGroups(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))

	groups, err := a.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, GroupIDPSP, groups[0].ID())
	require.Equal(t, "PSPG", groups[0].Signature())
	require.Equal(t, GroupIDMemory, groups[1].ID())
	require.Equal(t, "MEMG", groups[1].Signature())
}

func TestDeleteFirstGroup(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))
	require.NoError(t, a.DeleteGroup(GroupIDPSP))
	require.NoError(t, UpdateChecksum(buffer))

	a, err = Load(buffer, nil)
	require.NoError(t, err)
	groups, err := a.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, GroupIDMemory, groups[0].ID())
	require.Equal(t, "MEMG", groups[0].Signature())
}

func TestDeleteSecondGroup(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))
	require.NoError(t, a.DeleteGroup(GroupIDMemory))
	require.NoError(t, UpdateChecksum(buffer))

	a, err = Load(buffer, nil)
	require.NoError(t, err)
	groups, err := a.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, GroupIDPSP, groups[0].ID())
}

func TestDeleteUnknownGroup(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.ErrorIs(t, a.DeleteGroup(GroupIDToken), ErrGroupNotFound)

	groups, err := a.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestInsertGroupTwice(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.ErrorIs(t, a.InsertGroup(GroupIDPSP, pspSignature), ErrGroupUniqueKeyViolation)
}

func TestInsertAndDeleteEntries(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))

	payload1 := bytes.Repeat([]byte{1}, 48)
	payload2 := bytes.Repeat([]byte{2}, 48)
	require.NoError(t, a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, payload1,
		uint8(CreatePriorityMask(PriorityLevelLow))))
	require.NoError(t, a.InsertEntry(GroupIDPSP, 0x61, 0, 0xFFFF, ContextTypeStruct, payload2,
		uint8(CreatePriorityMask(PriorityLevelMedium))))

	sizeBefore := a.Header().APCBSize
	require.NoError(t, a.DeleteEntry(GroupIDPSP, 0x60, 0, 0xFFFF))
	require.Equal(t, sizeBefore-64, a.Header().APCBSize)

	group, err := a.Group(GroupIDPSP)
	require.NoError(t, err)
	require.Equal(t, uint32(groupHeaderSize+64), group.Header.GroupSize)
	entries, err := group.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint16(0x61), entries[0].Header.EntryID)

	body, err := entries[0].Body.StructBody()
	require.NoError(t, err)
	require.Equal(t, payload2, body)
}

func TestEntriesKeepSortOrder(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))

	// Inserted out of order on every key component.
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x51, 0, 0xFFFF, ContextTypeStruct, []byte{1, 2, 3, 4}, 0x20))
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x30, 1, 0xFFFF, ContextTypeStruct, nil, 0x20))
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x30, 0, 0xFFFF, ContextTypeStruct, nil, 0x20))
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x30, 1, 0x0001, ContextTypeStruct, nil, 0x20))

	group, err := a.Group(GroupIDMemory)
	require.NoError(t, err)
	entries, err := group.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var keys []entryKey
	for i := range entries {
		keys = append(keys, entries[i].Header.compositeKey())
	}
	require.Equal(t, []entryKey{
		{GroupIDMemory, 0x30, 0, 0xFFFF},
		{GroupIDMemory, 0x30, 1, 0x0001},
		{GroupIDMemory, 0x30, 1, 0xFFFF},
		{GroupIDMemory, 0x51, 0, 0xFFFF},
	}, keys)
}

func TestInsertEntryTwice(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, nil, 0x20))
	require.ErrorIs(t, a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, nil, 0x20),
		ErrEntryUniqueKeyViolation)
}

func TestEntryHeaderFields(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))

	entry, err := a.Entry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, uint8(ContextFormatSortAscending), entry.Header.ContextFormat)
	require.Equal(t, uint8(8), entry.Header.UnitSize)
	require.Equal(t, uint8(4), entry.Header.KeySize)
	require.Equal(t, uint8(0), entry.Header.KeyPos)
	require.Equal(t, GroupIDToken, entry.Header.GroupID)

	kind, err := entry.TokenKind()
	require.NoError(t, err)
	require.Equal(t, TokenKindByte, kind)
}

func TestInsertTokensKeepsOrder(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))

	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0xAE46CEA4, 2))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x42, 1))

	entry, err := a.Entry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, uint16(entryHeaderSize+2*tokenPairSize), entry.Header.EntrySize)

	stream, err := entry.Body.TokenStream()
	require.NoError(t, err)
	require.Equal(t, []Token{
		{Key: 0x42, Value: 1},
		{Key: 0xAE46CEA4, Value: 2},
	}, stream.Tokens())
}

func TestInsertTokenIntoSandwichedEntry(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x30, 0, 0xFFFF, ContextTypeStruct, []byte{9, 9, 9, 9}, 0x20))

	// Grows an entry that has a sibling after it and a whole group behind it.
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x11, 1))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x10, 0))

	entry, err := a.Entry(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF)
	require.NoError(t, err)
	stream, err := entry.Body.TokenStream()
	require.NoError(t, err)
	require.Equal(t, []Token{{Key: 0x10, Value: 0}, {Key: 0x11, Value: 1}}, stream.Tokens())

	// The sibling entry and the following group survived the shifts.
	entry, err = a.Entry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, uint16(entryHeaderSize), entry.Header.EntrySize)

	memEntry, err := a.Entry(GroupIDMemory, 0x30, 0, 0xFFFF)
	require.NoError(t, err)
	body, err := memEntry.Body.StructBody()
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9, 9}, body)

	require.NoError(t, a.Validate())
}

func TestInsertTokenTwice(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 1))
	require.ErrorIs(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 0),
		ErrTokenUniqueKeyViolation)
}

func TestTokenValueRange(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))

	require.ErrorIs(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 2),
		ErrTokenRange)

	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 1))
	require.ErrorIs(t, a.UpdateToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 2),
		ErrTokenRange)
	require.NoError(t, a.UpdateToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 0))

	token, err := a.Token(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42)
	require.NoError(t, err)
	require.Equal(t, uint32(0), token.Value)
}

func TestDeleteTokens(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x42, 1))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x43, 2))

	sizeBefore := a.Header().APCBSize
	require.NoError(t, a.DeleteToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x42))
	require.Equal(t, sizeBefore-tokenPairSize, a.Header().APCBSize)

	entry, err := a.Entry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, uint16(entryHeaderSize+tokenPairSize), entry.Header.EntrySize)
	stream, err := entry.Body.TokenStream()
	require.NoError(t, err)
	require.Equal(t, []Token{{Key: 0x43, Value: 2}}, stream.Tokens())

	require.ErrorIs(t, a.DeleteToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x42),
		ErrTokenNotFound)
}

func TestInsertTokenGroupNotFound(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.ErrorIs(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 1),
		ErrGroupNotFound)

	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.ErrorIs(t, a.InsertToken(GroupIDToken, uint16(TokenKindBool), 0, 0xFFFF, 0x42, 1),
		ErrEntryNotFound)
}

func TestInsertTokenIntoStructEntry(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, []byte{1, 2, 3, 4}, 0x20))
	require.ErrorIs(t, a.InsertToken(GroupIDPSP, 0x60, 0, 0xFFFF, 0x42, 1),
		ErrEntryTypeMismatch)
}

func TestInsertDeleteEntryRestoresImage(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x30, 0, 0xFFFF, ContextTypeStruct, []byte{5, 6, 7}, 0x20))
	require.NoError(t, UpdateChecksum(buffer))

	snapshot := make([]byte, a.Header().APCBSize)
	copy(snapshot, buffer[:a.Header().APCBSize])

	require.NoError(t, a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, bytes.Repeat([]byte{3}, 20), 0x20))
	require.NoError(t, a.DeleteEntry(GroupIDPSP, 0x60, 0, 0xFFFF))

	require.Equal(t, snapshot, buffer[:a.Header().APCBSize])
}

func TestFailedInsertDoesNotMutate(t *testing.T) {
	// A buffer with room for the headers, one group, and nothing else.
	buffer := make([]byte, headerV3Size+groupHeaderSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, UpdateChecksum(buffer))

	snapshot := make([]byte, len(buffer))
	copy(snapshot, buffer)

	err = a.InsertEntry(GroupIDPSP, 0x60, 0, 0xFFFF, ContextTypeStruct, []byte{1}, 0x20)
	require.ErrorIs(t, err, ErrOutOfSpace)
	require.Equal(t, snapshot, buffer)

	require.ErrorIs(t, a.InsertGroup(GroupIDMemory, memorySignature), ErrOutOfSpace)
	require.Equal(t, snapshot, buffer)
}

func TestChecksumInvalid(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDPSP, pspSignature))
	require.NoError(t, UpdateChecksum(buffer))

	_, err = Load(buffer, nil)
	require.NoError(t, err)

	// Break one group header byte; the stored checksum no longer balances.
	buffer[headerV3Size+4] ^= 0x5A
	_, err = Load(buffer, nil)
	var fsError *FileSystemError
	require.ErrorAs(t, err, &fsError)
	require.Equal(t, "V2_HEADER::checksum_byte", fsError.Field)
}

func TestSaveBumpsUniqueInstance(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	_, err := Create(buffer, 42, nil)
	require.NoError(t, err)

	require.NoError(t, Save(buffer))
	a, err := Load(buffer, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(43), a.Header().UniqueAPCBInstance)

	require.NoError(t, Save(buffer))
	a, err = Load(buffer, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(44), a.Header().UniqueAPCBInstance)
}

func TestSaveLoadIdempotent(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindDword), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindDword), 0, 0xFFFF, 0xDD3AD029, 0xDEADBEEF))
	require.NoError(t, Save(buffer))

	snapshot := make([]byte, len(buffer))
	copy(snapshot, buffer)

	a, err = Load(buffer, nil)
	require.NoError(t, err)
	require.NoError(t, a.Validate())
	require.Equal(t, snapshot, buffer)
}

func TestLoadBareV2Header(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	for i := range buffer {
		buffer[i] = 0xFF
	}
	hdr := newHeaderV2()
	require.NoError(t, writeAt(buffer, 0, &hdr))
	require.NoError(t, UpdateChecksum(buffer))

	a, err := Load(buffer, nil)
	require.NoError(t, err)
	require.Nil(t, a.ExtHeader())
	groups, err := a.Groups()
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestLoadRejectsOddHeaderSize(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	for i := range buffer {
		buffer[i] = 0xFF
	}
	hdr := newHeaderV2()
	hdr.HeaderSize = 64
	hdr.APCBSize = 64
	require.NoError(t, writeAt(buffer, 0, &hdr))
	require.NoError(t, UpdateChecksum(buffer))

	_, err := Load(buffer, nil)
	var fsError *FileSystemError
	require.ErrorAs(t, err, &fsError)
	require.Equal(t, "V2_HEADER::header_size", fsError.Field)
}

func TestTokenVersionGate(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	abl0 := uint32(0x1000)
	a, err := Create(buffer, 42, &Options{Abl0Version: &abl0})
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))

	// A known Bool token declared for a Byte entry does not pass the gate.
	err = a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, uint32(TokenIDPSPStopOnError), 1)
	var mismatch *TokenVersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, uint32(TokenIDPSPStopOnError), mismatch.TokenID)

	// Undeclared tokens are accepted to ease bring-up.
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x12345678, 7))
}

func TestValidateDetectsTokenDisorder(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDToken, tokenSignature))
	require.NoError(t, a.InsertEntry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, ContextTypeTokens, nil, 0x20))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x42, 1))
	require.NoError(t, a.InsertToken(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF, 0x43, 2))
	require.NoError(t, a.Validate())

	// Swap the two token records behind the editor's back.
	entry, err := a.Entry(GroupIDToken, uint16(TokenKindByte), 0, 0xFFFF)
	require.NoError(t, err)
	stream, err := entry.Body.TokenStream()
	require.NoError(t, err)
	var first, second TokenPair
	require.NoError(t, readAt(stream.buf, 0, &first))
	require.NoError(t, readAt(stream.buf, tokenPairSize, &second))
	require.NoError(t, writeAt(stream.buf, 0, &second))
	require.NoError(t, writeAt(stream.buf, tokenPairSize, &first))

	require.ErrorIs(t, a.Validate(), ErrTokenOrderingViolation)
}

func TestDecodeStruct(t *testing.T) {
	buffer := make([]byte, testBufferSize)
	a, err := Create(buffer, 42, nil)
	require.NoError(t, err)
	require.NoError(t, a.InsertGroup(GroupIDMemory, memorySignature))

	type consoleOut struct {
		Enable  uint8
		Port    uint8
		Divisor uint16
	}
	payload := []byte{1, 3, 0x10, 0x27}
	require.NoError(t, a.InsertEntry(GroupIDMemory, 0x50, 0, 0xFFFF, ContextTypeStruct, payload, 0x20))

	entry, err := a.Entry(GroupIDMemory, 0x50, 0, 0xFFFF)
	require.NoError(t, err)
	var decoded consoleOut
	require.NoError(t, entry.DecodeStruct(&decoded))
	require.Equal(t, consoleOut{Enable: 1, Port: 3, Divisor: 0x2710}, decoded)
}
