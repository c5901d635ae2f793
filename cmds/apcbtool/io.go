// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/linuxboot/apcb/pkg/apcb"
	"github.com/linuxboot/apcb/pkg/compression"
)

// defaultBufferSize is the editing buffer capacity when the command line
// does not name one. It bounds how far a blob can grow in one session.
func defaultBufferSize() int {
	return env.Int("APCBTOOL_SIZE", 8*1024)
}

// defaultPriorityMask is the priority mask stamped on inserted entries when
// the command line does not name one.
func defaultPriorityMask() uint8 {
	return uint8(env.Int("APCBTOOL_PRIORITY", 0x20))
}

// readBlobBuffer reads an APCB image, decompressing sniffed containers, and
// returns it inside an editing buffer of at least size bytes. The slack past
// the image is filled with the 0xFF flash sentinel.
func readBlobBuffer(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	data, err = compression.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing %q: %w", path, err)
	}
	if size < len(data) {
		size = len(data)
	}
	buffer := make([]byte, size)
	copy(buffer, data)
	for i := len(data); i < size; i++ {
		buffer[i] = 0xFF
	}
	return buffer, nil
}

// writeBlobBuffer writes an APCB editing buffer back to disk. A path ending
// in a known codec extension is compressed accordingly.
func writeBlobBuffer(path string, buffer []byte) error {
	data := buffer
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if codec := compression.CodecByName(ext); codec != nil {
		var err error
		data, err = codec.Encode(buffer)
		if err != nil {
			return fmt.Errorf("compressing %q: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

// loadBlob reads and parses an APCB image for editing.
func loadBlob(path string, size int) (*apcb.APCB, error) {
	buffer, err := readBlobBuffer(path, size)
	if err != nil {
		return nil, err
	}
	a, err := apcb.Load(buffer, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return a, nil
}

// saveBlob stamps and writes an edited blob back to its file.
func saveBlob(path string, a *apcb.APCB) error {
	if err := apcb.Save(a.Buf()); err != nil {
		return err
	}
	return writeBlobBuffer(path, a.Buf())
}

// parseNum accepts decimal, 0x-hexadecimal and 0-octal input.
func parseNum(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := parseNum(s, 16)
	return uint16(v), err
}

func parseUint32(s string) (uint32, error) {
	v, err := parseNum(s, 32)
	return uint32(v), err
}

// parseTokenKind maps a command-line kind name to the entry id of a Tokens
// entry.
func parseTokenKind(s string) (apcb.TokenKind, error) {
	switch strings.ToLower(s) {
	case "bool":
		return apcb.TokenKindBool, nil
	case "byte":
		return apcb.TokenKindByte, nil
	case "word":
		return apcb.TokenKindWord, nil
	case "dword":
		return apcb.TokenKindDword, nil
	}
	return 0, fmt.Errorf("unknown token kind %q (want bool, byte, word or dword)", s)
}

// parseContextType maps a command-line context name to the entry body
// variant.
func parseContextType(s string) (apcb.ContextType, error) {
	switch strings.ToLower(s) {
	case "struct":
		return apcb.ContextTypeStruct, nil
	case "parameters":
		return apcb.ContextTypeParameters, nil
	case "tokens":
		return apcb.ContextTypeTokens, nil
	}
	return 0, fmt.Errorf("unknown context type %q (want struct, parameters or tokens)", s)
}

// groupSignature derives the 4-character group signature: an explicit one
// wins, well-known group ids fall back to their convention, everything else
// to blanks.
func groupSignature(groupID uint16, explicit string) ([4]byte, error) {
	if explicit != "" {
		if len(explicit) != 4 {
			return [4]byte{}, fmt.Errorf("group signature %q is not 4 characters", explicit)
		}
		var sig [4]byte
		copy(sig[:], explicit)
		return sig, nil
	}
	if sig, ok := apcb.GroupIDSignature(groupID); ok {
		return sig, nil
	}
	return [4]byte{' ', ' ', ' ', ' '}, nil
}
